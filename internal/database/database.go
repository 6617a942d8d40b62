// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/linkage/internal/cache"
	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
)

// DB wraps the DuckDB connection and provides the linkage store operations.
// Every table is prefixed with the configured index name.
type DB struct {
	conn     *sql.DB
	cfg      config.StoreConfig
	tables   tableNames
	breaker  *gobreaker.CircuitBreaker[any]
	concepts *cache.Trie
}

// New opens the store and creates the schema.
//
//nolint:gocritic // config passed by value so the store keeps its own copy
func New(cfg config.StoreConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// Extensions are never needed; keep DuckDB from reaching the network.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:     conn,
		cfg:      cfg,
		tables:   newTableNames(cfg.IndexName),
		breaker:  newBreaker(&cfg),
		concepts: cache.NewTrie(cache.DefaultSuggestions),
	}

	db.configureConnectionPool()

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Str("index", cfg.IndexName).
		Int("threads", numThreads).
		Msg("Store opened")

	return db, nil
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// IndexName returns the logical index the store writes to.
func (db *DB) IndexName() string {
	return db.cfg.IndexName
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping checks that the database answers a trivial query.
func (db *DB) Ping(ctx context.Context) error {
	return db.run(ctx, "ping", func(ctx context.Context) error {
		var one int
		return db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	})
}

// Refresh makes every completed write durable and rebuilds the autocomplete
// index from the current linkages, metadata ids and search queries.
func (db *DB) Refresh(ctx context.Context) error {
	if err := db.run(ctx, "refresh", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
		return err
	}); err != nil {
		return err
	}
	return db.rebuildAutocomplete(ctx)
}
