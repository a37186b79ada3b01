package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mixtape/internal/config"
	"mixtape/internal/store"
)

// openBackend opens the document storage selected by cfg.Backend.
func openBackend(ctx context.Context, cfg config.StorageConfig) (store.Documents, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return store.NewFileDocuments(cfg.DataDir)
	case config.BackendBolt:
		return store.OpenBolt(cfg.BoltPath)
	case config.BackendSQLite:
		return store.OpenSQLiteDocuments(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// The documents table is created by cmd/migrate.
		return store.NewSQLDocuments(db, store.Postgres), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// openDatabase establishes a database connection and retries until the instance responds.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	const (
		pingTimeout    = 5 * time.Second
		maxWait        = 30 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)

	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return db, nil
		}

		// Respect caller cancellation.
		if ctx.Err() != nil {
			break
		}

		if time.Now().After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", lastErr)
}
