// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlgraph

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// dialect captures the differences between the supported SQL engines.
// Statements are written with ? placeholders and rebound per dialect.
type dialect struct {
	name   string
	schema []string
	rebind func(string) string
	// propFilter returns a condition selecting rows of alias whose property
	// key equals want. Non-scalar values only require the key to be present.
	propFilter func(alias, key string, want any) (string, []any)
}

var sqliteDialect = &dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS nodes (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	uri   TEXT NOT NULL UNIQUE,
	props TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE TABLE IF NOT EXISTS node_labels (
	node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	label   TEXT NOT NULL,
	PRIMARY KEY (node_id, label)
)`,
		`CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label, node_id)`,
		`CREATE TABLE IF NOT EXISTS edges (
	id    TEXT PRIMARY KEY,
	type  TEXT NOT NULL,
	src   INTEGER NOT NULL REFERENCES nodes(id),
	dst   INTEGER NOT NULL REFERENCES nodes(id),
	props TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src, type)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst, type)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type)`,
	},
	rebind:     func(q string) string { return q },
	propFilter: sqlitePropFilter,
}

var postgresDialect = &dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS nodes (
	id    BIGSERIAL PRIMARY KEY,
	uri   TEXT NOT NULL UNIQUE,
	props TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE TABLE IF NOT EXISTS node_labels (
	node_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	label   TEXT NOT NULL,
	PRIMARY KEY (node_id, label)
)`,
		`CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label, node_id)`,
		`CREATE TABLE IF NOT EXISTS edges (
	id    TEXT PRIMARY KEY,
	type  TEXT NOT NULL,
	src   BIGINT NOT NULL REFERENCES nodes(id),
	dst   BIGINT NOT NULL REFERENCES nodes(id),
	props TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src, type)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst, type)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type)`,
	},
	rebind:     numberedPlaceholders,
	propFilter: postgresPropFilter,
}

// sqlitePropFilter compares through json_extract, which yields SQL integers
// for JSON booleans.
func sqlitePropFilter(alias, key string, want any) (string, []any) {
	path := `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
	expr := "json_extract(" + alias + ".props, ?)"
	switch v := want.(type) {
	case string, int64, float64:
		return expr + " = ?", []any{path, v}
	case bool:
		b := int64(0)
		if v {
			b = 1
		}
		return expr + " = ?", []any{path, b}
	}
	return expr + " IS NOT NULL", []any{path}
}

// postgresPropFilter compares the text form ->> produces.
func postgresPropFilter(alias, key string, want any) (string, []any) {
	expr := "(" + alias + ".props::jsonb ->> ?)"
	var text string
	switch v := want.(type) {
	case string:
		text = v
	case int64:
		text = strconv.FormatInt(v, 10)
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		text = strconv.FormatBool(v)
	default:
		return expr + " IS NOT NULL", []any{key}
	}
	return expr + " = ?", []any{key, text}
}

// numberedPlaceholders rewrites ? into $1, $2, ... for PostgreSQL.
func numberedPlaceholders(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d *dialect) migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// classify maps a driver error onto the store error taxonomy.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return ontoerr.Wrap(err, ontoerr.CodeStoreConnectionUnavailable, msg)
	}
	if isUniqueViolation(err) {
		return ontoerr.Wrap(err, ontoerr.CodeStoreConflict, msg)
	}
	return ontoerr.Wrap(err, ontoerr.CodeStoreDatabaseFailure, msg)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
