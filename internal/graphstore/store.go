// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package graphstore defines the boundary between the ontology engine and a
// backing property-graph database.
package graphstore

import (
	"context"
	"fmt"

	"github.com/sigil-dev/ontograph/internal/query"
)

// Value is one column of a result row. The set of implementations is closed:
// RawNode, RawEdge and Scalar. Backends never hand driver-native types to
// callers.
type Value interface {
	isValue()
}

// RawNode is a graph vertex as returned by a backend.
type RawNode struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// RawEdge is a graph relationship as returned by a backend.
type RawEdge struct {
	ID      string
	Type    string
	StartID string
	EndID   string
	Props   map[string]any
}

// Scalar wraps a plain value. A nil V represents a null column.
type Scalar struct {
	V any
}

func (RawNode) isValue() {}
func (RawEdge) isValue() {}
func (Scalar) isValue()  {}

// Row maps output column names to values.
type Row map[string]Value

// Node returns the RawNode in column col, if any.
func (r Row) Node(col string) (RawNode, bool) {
	n, ok := r[col].(RawNode)
	return n, ok
}

// String returns the string form of a scalar column, or "".
func (r Row) String(col string) string {
	s, ok := r[col].(Scalar)
	if !ok || s.V == nil {
		return ""
	}
	if str, ok := s.V.(string); ok {
		return str
	}
	return fmt.Sprint(s.V)
}

// Int returns the integer form of a scalar column, or 0.
func (r Row) Int(col string) int64 {
	s, ok := r[col].(Scalar)
	if !ok {
		return 0
	}
	switch v := s.V.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// SumCount adds up the cnt column across rows.
func SumCount(rows []Row) int {
	var total int64
	for _, r := range rows {
		total += r.Int(query.ColCount)
	}
	return int(total)
}

// Runner executes composed statements.
type Runner interface {
	// Run executes q and returns its rows. Zero rows is not an error.
	// Transport failures are reported as store.connection.unavailable.
	Run(ctx context.Context, q query.Query) ([]Row, error)
}

// Store is a Runner bound to a live backend.
type Store interface {
	Runner
	Ping(ctx context.Context) error
	Close() error
	// Backend names the implementation ("sqlite", "postgres", "neo4j").
	Backend() string
}

// Transactor is implemented by stores that can scope several statements in
// one transaction. fn's error rolls the transaction back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Runner) error) error
}

// Atomically runs fn inside a transaction when s supports one and directly
// against s otherwise.
func Atomically(ctx context.Context, s Runner, fn func(Runner) error) error {
	if tx, ok := s.(Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(s)
}
