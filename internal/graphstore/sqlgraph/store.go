// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package sqlgraph is an embedded property-graph backend on database/sql.
// Nodes, their labels and edges live in three tables; composed statements
// are executed from their structured arguments rather than their Cypher
// text, with recursive CTEs for transitive closures.
package sqlgraph

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// Compile-time interface checks.
var (
	_ graphstore.Store      = (*Store)(nil)
	_ graphstore.Transactor = (*Store)(nil)
)

// Store implements graphstore.Store over a SQL database.
type Store struct {
	db      *sql.DB
	dialect *dialect
	logger  *slog.Logger
	onClose func()
}

func newStore(ctx context.Context, db *sql.DB, d *dialect, onClose func()) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, classify(err, "pinging "+d.name+" db")
	}
	if err := d.migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, ontoerr.Errorf(ontoerr.CodeStoreDatabaseFailure, "migrating graph tables: %w", err)
	}
	return &Store{db: db, dialect: d, logger: slog.Default(), onClose: onClose}, nil
}

// Backend names the SQL dialect in use.
func (s *Store) Backend() string {
	return s.dialect.name
}

// Run executes q outside any explicit transaction. Multi-statement kinds
// still run atomically in a local transaction.
func (s *Store) Run(ctx context.Context, q query.Query) ([]graphstore.Row, error) {
	r := &runner{q: s.db, db: s.db, d: s.dialect, logger: s.logger}
	return r.Run(ctx, q)
}

// InTx runs fn with a Runner bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(graphstore.Runner) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&runner{q: tx, d: s.dialect, logger: s.logger}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "committing transaction")
	}
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx), "pinging "+s.dialect.name+" db")
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}
