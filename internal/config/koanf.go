// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/linkage/config.yaml",
	"/etc/linkage/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:            "./data/linkage.duckdb",
			IndexName:       "mudrod",
			Threads:         0,
			MaxMemory:       "2GB",
			BatchSize:       1000,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Input: InputConfig{
			RawMetadataPath:    "./data/metadata",
			SessionLogPath:     "./data/sessions.csv",
			ClickstreamPath:    "./data/clickstream.csv",
			MetadataIDField:    "short_name",
			MetadataTextFields: []string{"abstract", "title"},
			MetadataFeatureFields: []string{
				"processing_level", "platform", "sensor",
				"spatial_resolution", "temporal_resolution",
			},
		},
		SVD: SVDConfig{
			Rank:       50,
			OutputPath: "./data/clickstream_svd.csv",
		},
		Similarity: SimilarityConfig{
			Content:     ContentSimilarityConfig{Threshold: 0, TopK: 10, SVDRank: 50},
			Feature:     ScoreConfig{Threshold: 0, TopK: 10},
			Session:     SessionSimilarityConfig{Threshold: 0, TopK: 10, UseSVD: true, SVDRank: 20, SharedOnly: true},
			Clickstream: ScoreConfig{Threshold: 0, TopK: 0},
		},
		Pipeline: PipelineConfig{
			StageTimeout:     30 * time.Minute,
			Workers:          runtime.NumCPU(),
			ScheduleInterval: 24 * time.Hour,
			RunOnStartup:     true,
		},
		RunLog: RunLogConfig{
			Path:      "./data/runlog",
			Retention: 30 * 24 * time.Hour,
		},
		Export: ExportConfig{
			Dir: "./data/export",
		},
		Server: ServerConfig{
			Addr:              ":8686",
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// Precedence is ENV > File > Defaults. The result has been validated.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path falls back
// to CONFIG_PATH and DefaultConfigPaths; a non-empty path must exist.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// LINKAGE_INDEX_NAME -> store.index_name
	// LOG_LEVEL -> logging.level
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"input.metadata_text_fields",
	"input.metadata_feature_fields",
	"server.cors_allowed_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Store
	"linkage_store_path":       "store.path",
	"linkage_index_name":       "store.index_name",
	"linkage_store_threads":    "store.threads",
	"linkage_store_max_memory": "store.max_memory",
	"linkage_store_batch_size": "store.batch_size",
	"linkage_breaker_failures": "store.breaker_failures",
	"linkage_breaker_timeout":  "store.breaker_timeout",

	// Inputs
	"linkage_metadata_path":           "input.raw_metadata_path",
	"linkage_session_log_path":        "input.session_log_path",
	"linkage_clickstream_path":        "input.clickstream_path",
	"linkage_metadata_id_field":       "input.metadata_id_field",
	"linkage_metadata_text_fields":    "input.metadata_text_fields",
	"linkage_metadata_feature_fields": "input.metadata_feature_fields",

	// SVD
	"linkage_svd_rank":        "svd.rank",
	"linkage_svd_output_path": "svd.output_path",

	// Similarity
	"linkage_content_threshold":     "similarity.content.threshold",
	"linkage_content_top_k":         "similarity.content.top_k",
	"linkage_content_svd_rank":      "similarity.content.svd_rank",
	"linkage_feature_threshold":     "similarity.feature.threshold",
	"linkage_feature_top_k":         "similarity.feature.top_k",
	"linkage_session_threshold":     "similarity.session.threshold",
	"linkage_session_top_k":         "similarity.session.top_k",
	"linkage_session_use_svd":       "similarity.session.use_svd",
	"linkage_session_svd_rank":      "similarity.session.svd_rank",
	"linkage_session_shared_only":   "similarity.session.shared_only",
	"linkage_clickstream_threshold": "similarity.clickstream.threshold",
	"linkage_clickstream_top_k":     "similarity.clickstream.top_k",

	// Pipeline
	"linkage_stage_timeout":     "pipeline.stage_timeout",
	"linkage_workers":           "pipeline.workers",
	"linkage_schedule_interval": "pipeline.schedule_interval",
	"linkage_run_on_startup":    "pipeline.run_on_startup",

	// Run history, ranking, export
	"linkage_runlog_path":      "runlog.path",
	"linkage_runlog_retention": "runlog.retention",
	"linkage_ranking_model":    "ranking.model_path",
	"linkage_export_dir":       "export.dir",

	// HTTP server
	"linkage_http_addr":           "server.addr",
	"linkage_http_read_timeout":   "server.read_timeout",
	"linkage_http_write_timeout":  "server.write_timeout",
	"linkage_shutdown_timeout":    "server.shutdown_timeout",
	"linkage_rate_limit_requests": "server.rate_limit_requests",
	"linkage_rate_limit_window":   "server.rate_limit_window",
	"linkage_cors_origins":        "server.cors_allowed_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LINKAGE_INDEX_NAME -> store.index_name
//   - LINKAGE_SESSION_USE_SVD -> similarity.session.use_svd
//   - LOG_LEVEL -> logging.level
//
// Unmapped variables return "" and are ignored by the env provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
