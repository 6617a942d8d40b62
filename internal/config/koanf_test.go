// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// isolate points CONFIG_PATH at a missing file so no stray config.yaml is read.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Store.IndexName != "mudrod" {
		t.Errorf("Store.IndexName = %q, want mudrod", cfg.Store.IndexName)
	}
	if cfg.Store.BatchSize != 1000 {
		t.Errorf("Store.BatchSize = %d, want 1000", cfg.Store.BatchSize)
	}
	if cfg.SVD.Rank != 50 {
		t.Errorf("SVD.Rank = %d, want 50", cfg.SVD.Rank)
	}
	if !cfg.Similarity.Session.UseSVD || cfg.Similarity.Session.SVDRank != 20 {
		t.Errorf("Similarity.Session = %+v, want use_svd with rank 20", cfg.Similarity.Session)
	}
	if cfg.Pipeline.StageTimeout != 30*time.Minute {
		t.Errorf("Pipeline.StageTimeout = %v, want 30m", cfg.Pipeline.StageTimeout)
	}
	if !reflect.DeepEqual(cfg.Input.MetadataTextFields, []string{"abstract", "title"}) {
		t.Errorf("Input.MetadataTextFields = %v", cfg.Input.MetadataTextFields)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() = %v, want nil", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"LINKAGE_INDEX_NAME", "store.index_name"},
		{"LINKAGE_STORE_PATH", "store.path"},
		{"LINKAGE_SESSION_USE_SVD", "similarity.session.use_svd"},
		{"LINKAGE_SVD_RANK", "svd.rank"},
		{"LOG_LEVEL", "logging.level"},
		{"linkage_workers", "pipeline.workers"},
		{"HOME", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	path := writeConfig(t, "svd:\n  rank: 5\n")

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() with missing CONFIG_PATH = %q, want empty", got)
	}
}

func TestLoadEnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("LINKAGE_INDEX_NAME", "podaac")
	t.Setenv("LINKAGE_SVD_RANK", "12")
	t.Setenv("LINKAGE_STAGE_TIMEOUT", "90s")
	t.Setenv("LINKAGE_SESSION_USE_SVD", "false")
	t.Setenv("LINKAGE_METADATA_TEXT_FIELDS", "abstract, keywords ,title")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.IndexName != "podaac" {
		t.Errorf("Store.IndexName = %q, want podaac", cfg.Store.IndexName)
	}
	if cfg.SVD.Rank != 12 {
		t.Errorf("SVD.Rank = %d, want 12", cfg.SVD.Rank)
	}
	if cfg.Pipeline.StageTimeout != 90*time.Second {
		t.Errorf("Pipeline.StageTimeout = %v, want 90s", cfg.Pipeline.StageTimeout)
	}
	if cfg.Similarity.Session.UseSVD {
		t.Error("Similarity.Session.UseSVD = true, want false")
	}
	if want := []string{"abstract", "keywords", "title"}; !reflect.DeepEqual(cfg.Input.MetadataTextFields, want) {
		t.Errorf("Input.MetadataTextFields = %v, want %v", cfg.Input.MetadataTextFields, want)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Unset values keep their defaults.
	if cfg.Store.BatchSize != 1000 {
		t.Errorf("Store.BatchSize = %d, want 1000 (default)", cfg.Store.BatchSize)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /tmp/linkage-test.duckdb
  index_name: custom
similarity:
  content:
    threshold: 0.25
    top_k: 3
  session:
    svd_rank: 7
logging:
  level: warn
`)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Path != "/tmp/linkage-test.duckdb" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Similarity.Content.Threshold != 0.25 || cfg.Similarity.Content.TopK != 3 {
		t.Errorf("Similarity.Content = %+v", cfg.Similarity.Content)
	}
	if cfg.Similarity.Session.SVDRank != 7 {
		t.Errorf("Similarity.Session.SVDRank = %d, want 7", cfg.Similarity.Session.SVDRank)
	}
	if !cfg.Similarity.Session.SharedOnly {
		t.Error("Similarity.Session.SharedOnly should keep its default")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "svd:\n  rank: 8\nlogging:\n  level: warn\n")
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LINKAGE_SVD_RANK", "16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SVD.Rank != 16 {
		t.Errorf("SVD.Rank = %d, want 16 (env override)", cfg.SVD.Rank)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (from file)", cfg.Logging.Level)
	}
}

func TestLoadFile_Explicit(t *testing.T) {
	isolate(t)

	path := writeConfig(t, "store:\n  index_name: explicit\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Store.IndexName != "explicit" {
		t.Errorf("Store.IndexName = %q, want explicit", cfg.Store.IndexName)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFile() with a missing explicit file should fail")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "non-positive svd rank",
			envVars: map[string]string{"LINKAGE_SVD_RANK": "0"},
			errMsg:  "svd.rank must be greater than 0",
		},
		{
			name:    "threshold above one",
			envVars: map[string]string{"LINKAGE_FEATURE_THRESHOLD": "1.5"},
			errMsg:  "similarity.feature.threshold must be less than or equal to 1",
		},
		{
			name:    "bad log level",
			envVars: map[string]string{"LOG_LEVEL": "loud"},
			errMsg:  "logging.level must be one of",
		},
		{
			name:    "index name not a table prefix",
			envVars: map[string]string{"LINKAGE_INDEX_NAME": "Bad-Name"},
			errMsg:  "store.index_name must start with a lowercase letter",
		},
		{
			name:    "session svd without rank",
			envVars: map[string]string{"LINKAGE_SESSION_SVD_RANK": "0"},
			errMsg:  "similarity.session.svd_rank must be positive",
		},
		{
			name:    "duplicate feature field",
			envVars: map[string]string{"LINKAGE_METADATA_FEATURE_FIELDS": "sensor,sensor"},
			errMsg:  "lists \"sensor\" twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() expected error containing %q, got nil", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Load() error = %q, want it to contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}
