// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package config loads and validates Linkage configuration.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. The first config file found among
CONFIG_PATH, config.yaml, config.yml and /etc/linkage/config.yaml is used.

# Example config.yaml

	store:
	  path: ./data/linkage.duckdb
	  index_name: mudrod
	input:
	  raw_metadata_path: ./data/metadata
	  session_log_path: ./data/sessions.csv
	  clickstream_path: ./data/clickstream.csv
	svd:
	  rank: 50
	similarity:
	  session:
	    use_svd: true
	    svd_rank: 20
	    top_k: 10
	pipeline:
	  stage_timeout: 30m
	logging:
	  level: info
	  format: json

# Environment Variables

Only mapped variables are read; see envMappings for the full table. Common ones:

  - CONFIG_PATH: explicit config file
  - LINKAGE_STORE_PATH, LINKAGE_INDEX_NAME: DuckDB file and index name
  - LINKAGE_METADATA_PATH, LINKAGE_SESSION_LOG_PATH, LINKAGE_CLICKSTREAM_PATH: inputs
  - LINKAGE_SVD_RANK: clickstream SVD rank
  - LINKAGE_STAGE_TIMEOUT, LINKAGE_WORKERS: pipeline execution
  - LINKAGE_HTTP_ADDR: serve mode listen address
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER: logging

Comma-separated values are accepted for list settings such as
LINKAGE_METADATA_TEXT_FIELDS and LINKAGE_CORS_ORIGINS.

# Validation

Validate runs go-playground/validator struct tags through the validation
package, then cross-field rules. Messages use koanf key paths, for example
"svd.rank must be greater than 0".
*/
package config
