// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package config

import "time"

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Configuration Categories:
//
//  1. Data: Store (DuckDB index), Input (raw metadata, session log, clickstream)
//  2. Algorithms: SVD, Similarity (per linkage category), Ranking
//  3. Runtime: Pipeline (timeouts, workers, schedule), RunLog, Export
//  4. Serving: Server (HTTP), Logging
//
// Config is built once by Load and treated as read-only afterwards.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Input      InputConfig      `koanf:"input"`
	SVD        SVDConfig        `koanf:"svd"`
	Similarity SimilarityConfig `koanf:"similarity"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	RunLog     RunLogConfig     `koanf:"runlog"`
	Ranking    RankingConfig    `koanf:"ranking"`
	Export     ExportConfig     `koanf:"export"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StoreConfig holds DuckDB settings for the linkage index.
//
// Environment Variables:
//   - LINKAGE_STORE_PATH: database file (default: ./data/linkage.duckdb)
//   - LINKAGE_INDEX_NAME: logical index name (default: mudrod)
//   - LINKAGE_STORE_BATCH_SIZE: rows per insert batch (default: 1000)
type StoreConfig struct {
	// Path is the DuckDB database file. ":memory:" keeps everything in RAM.
	// Default: ./data/linkage.duckdb
	Path string `koanf:"path" validate:"required"`

	// IndexName names the logical index. It prefixes every table so that
	// several indexes can share one database file.
	// Default: mudrod
	IndexName string `koanf:"index_name" validate:"required,index_name,max=64"`

	// Threads bounds DuckDB worker threads. Zero uses runtime.NumCPU().
	// Default: 0
	Threads int `koanf:"threads" validate:"gte=0"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	// Default: 2GB
	MaxMemory string `koanf:"max_memory" validate:"required"`

	// BatchSize is the number of rows written per statement batch.
	// Default: 1000
	BatchSize int `koanf:"batch_size" validate:"gt=0"`

	// BreakerFailures is the number of consecutive failures that opens the
	// store circuit breaker.
	// Default: 5
	BreakerFailures uint32 `koanf:"breaker_failures" validate:"gt=0"`

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 30s
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// InputConfig locates the raw inputs of the recommend and weblog engines.
type InputConfig struct {
	// RawMetadataPath is a directory of JSON metadata documents.
	// Default: ./data/metadata
	RawMetadataPath string `koanf:"raw_metadata_path"`

	// SessionLogPath is a CSV file of session_id,item_id[,count] rows.
	// Default: ./data/sessions.csv
	SessionLogPath string `koanf:"session_log_path"`

	// ClickstreamPath is the clickstream co-occurrence CSV.
	// Default: ./data/clickstream.csv
	ClickstreamPath string `koanf:"clickstream_path"`

	// MetadataIDField is the document field used as the dataset id. Documents
	// without it fall back to the file name.
	// Default: short_name
	MetadataIDField string `koanf:"metadata_id_field" validate:"required"`

	// MetadataTextFields are concatenated for TF-IDF.
	// Default: abstract, title
	MetadataTextFields []string `koanf:"metadata_text_fields" validate:"min=1"`

	// MetadataFeatureFields are normalized into feature vectors.
	// Default: processing_level, platform, sensor, spatial_resolution, temporal_resolution
	MetadataFeatureFields []string `koanf:"metadata_feature_fields"`
}

// SVDConfig holds the clickstream SVD settings.
type SVDConfig struct {
	// Rank is the number of singular components kept.
	// Default: 50
	Rank int `koanf:"rank" validate:"gt=0"`

	// OutputPath caches the reduced clickstream matrix between runs.
	// Empty disables the cache.
	// Default: ./data/clickstream_svd.csv
	OutputPath string `koanf:"output_path"`
}

// SimilarityConfig groups the scorer settings of every linkage category.
type SimilarityConfig struct {
	Content     ContentSimilarityConfig `koanf:"content"`
	Feature     ScoreConfig             `koanf:"feature"`
	Session     SessionSimilarityConfig `koanf:"session"`
	Clickstream ScoreConfig             `koanf:"clickstream"`
}

// ScoreConfig is the pruning shared by all categories.
type ScoreConfig struct {
	// Threshold is the exclusive lower bound on emitted weights.
	// Default: 0.0
	Threshold float64 `koanf:"threshold" validate:"gte=-1,lte=1"`

	// TopK keeps the K best neighbors per concept. Zero keeps all.
	// Default: 10 (0 for clickstream)
	TopK int `koanf:"top_k" validate:"gte=0"`
}

// ContentSimilarityConfig scores TF-IDF vectors after SVD reduction.
type ContentSimilarityConfig struct {
	Threshold float64 `koanf:"threshold" validate:"gte=-1,lte=1"`
	TopK      int     `koanf:"top_k" validate:"gte=0"`

	// SVDRank reduces the TF-IDF matrix before scoring. Zero scores raw vectors.
	// Default: 50
	SVDRank int `koanf:"svd_rank" validate:"gte=0"`
}

// SessionSimilarityConfig scores datasets by the sessions that used them.
type SessionSimilarityConfig struct {
	Threshold float64 `koanf:"threshold" validate:"gte=-1,lte=1"`
	TopK      int     `koanf:"top_k" validate:"gte=0"`

	// UseSVD reduces the item-by-session matrix before scoring.
	// Default: true
	UseSVD bool `koanf:"use_svd"`

	// SVDRank is the reduced rank when UseSVD is set.
	// Default: 20
	SVDRank int `koanf:"svd_rank" validate:"gte=0"`

	// SharedOnly restricts candidates to datasets seen in a common session.
	// Default: true
	SharedOnly bool `koanf:"shared_only"`
}

// PipelineConfig controls stage execution and scheduling.
//
// Environment Variables:
//   - LINKAGE_STAGE_TIMEOUT: per-stage deadline (default: 30m)
//   - LINKAGE_WORKERS: scorer worker pool size (default: NumCPU)
//   - LINKAGE_SCHEDULE_INTERVAL: time between scheduled runs when serving (default: 24h)
type PipelineConfig struct {
	// StageTimeout bounds each stage. Zero disables the deadline.
	// Default: 30m
	StageTimeout time.Duration `koanf:"stage_timeout" validate:"gte=0"`

	// Workers bounds the scorer worker pool.
	// Default: runtime.NumCPU()
	Workers int `koanf:"workers" validate:"gte=0"`

	// ScheduleInterval is the time between scheduled runs in serve mode.
	// Zero disables scheduled runs.
	// Default: 24h
	ScheduleInterval time.Duration `koanf:"schedule_interval" validate:"gte=0"`

	// RunOnStartup runs both engines once when the server starts.
	// Default: true
	RunOnStartup bool `koanf:"run_on_startup"`
}

// RunLogConfig holds the badger run history settings.
type RunLogConfig struct {
	// Path is the badger directory. Empty keeps history in memory.
	// Default: ./data/runlog
	Path string `koanf:"path"`

	// Retention is how long phase reports are kept.
	// Default: 720h (30 days)
	Retention time.Duration `koanf:"retention" validate:"gt=0"`
}

// RankingConfig holds the search ranking settings.
type RankingConfig struct {
	// ModelPath is a JSON linear model. Empty uses the built-in model.
	// Default: "" (built-in model)
	ModelPath string `koanf:"model_path"`
}

// ExportConfig holds the Parquet export settings.
type ExportConfig struct {
	// Dir receives one Parquet file per linkage category.
	// Default: ./data/export
	Dir string `koanf:"dir" validate:"required"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - LINKAGE_HTTP_ADDR: listen address (default: :8686)
//   - LINKAGE_RATE_LIMIT_REQUESTS: requests per window per IP (default: 100)
//   - LINKAGE_CORS_ORIGINS: comma-separated allowed origins (default: none)
type ServerConfig struct {
	// Addr is the listen address.
	// Default: :8686
	Addr string `koanf:"addr" validate:"required"`

	// ReadTimeout and WriteTimeout bound each request.
	// Default: 30s
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables.
	// Default: 100 per 1m
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`

	// CORSAllowedOrigins lists origins allowed to call the API.
	// Default: empty (CORS disabled)
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}
