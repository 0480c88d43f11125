// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlgraph

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func init() {
	graphstore.RegisterBackend("sqlite", func(ctx context.Context, cfg *graphstore.StorageConfig) (graphstore.Store, error) {
		return OpenSQLite(ctx, cfg.SQLitePath)
	})
	graphstore.RegisterBackend("postgres", func(ctx context.Context, cfg *graphstore.StorageConfig) (graphstore.Store, error) {
		return OpenPostgres(ctx, cfg.PostgresDSN)
	})
}

// OpenSQLite opens (or creates) a graph database file at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, ontoerr.New(ontoerr.CodeStoreInvalidInput, "sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, ontoerr.Errorf(ontoerr.CodeStoreDatabaseFailure, "creating sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, ontoerr.Errorf(ontoerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}
	return newStore(ctx, db, sqliteDialect, nil)
}

// OpenPostgres connects to PostgreSQL through a pgx pool exposed as a
// database/sql handle.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, ontoerr.New(ontoerr.CodeStoreInvalidInput, "postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeStoreInvalidInput, "parsing postgres dsn")
	}
	s, err := newStore(ctx, stdlib.OpenDBFromPool(pool), postgresDialect, pool.Close)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}
