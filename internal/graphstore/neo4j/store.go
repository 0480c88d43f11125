// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package neo4j executes composed Cypher against a Neo4j server. Each call
// opens its own session and closes it before returning.
package neo4j

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// Compile-time interface checks.
var (
	_ graphstore.Store      = (*Store)(nil)
	_ graphstore.Transactor = (*Store)(nil)
)

// entityLabel is carried by every node the store creates. The uri
// uniqueness constraint hangs off it, so uris are unique across all labels.
// It is stripped from decoded nodes.
const entityLabel = "Entity"

var schemaStatements = []string{
	// Nodes written before the shared label existed.
	"MATCH (n) WHERE n.uri IS NOT NULL AND NOT n:`Entity` SET n:`Entity`",
	"CREATE CONSTRAINT entity_uri IF NOT EXISTS FOR (n:`Entity`) REQUIRE n.uri IS UNIQUE",
}

// sessionOpener is the subset of neo4j.DriverWithContext the store uses.
type sessionOpener interface {
	NewSession(ctx context.Context, config neo4j.SessionConfig) neo4j.SessionWithContext
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Store implements graphstore.Store over a Neo4j driver.
type Store struct {
	driver   sessionOpener
	database string
	logger   *slog.Logger
}

func init() {
	graphstore.RegisterBackend("neo4j", func(ctx context.Context, cfg *graphstore.StorageConfig) (graphstore.Store, error) {
		return Open(ctx, cfg.Neo4j)
	})
}

// Open connects to the server, verifies connectivity and ensures the uri
// uniqueness constraint exists. Stored duplicates make the constraint, and so
// Open, fail.
func Open(ctx context.Context, cfg graphstore.Neo4jConfig) (*Store, error) {
	if cfg.URI == "" {
		return nil, ontoerr.New(ontoerr.CodeStoreInvalidInput, "neo4j uri is required")
	}
	drv, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeStoreInvalidInput, "creating neo4j driver",
			ontoerr.Field("neo4j_uri", cfg.URI))
	}
	s, err := newStore(ctx, drv, cfg.Database)
	if err != nil {
		_ = drv.Close(ctx)
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, drv sessionOpener, database string) (*Store, error) {
	if err := drv.VerifyConnectivity(ctx); err != nil {
		return nil, classify(err, "verifying neo4j connectivity")
	}
	s := &Store{driver: drv, database: database, logger: slog.Default()}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.exec(ctx, neo4j.AccessModeWrite, stmt, nil); err != nil {
			return ontoerr.With(err, ontoerr.Field("statement", stmt))
		}
	}
	s.logger.Debug("neo4j schema ready", "constraint", "entity_uri")
	return nil
}

// withEntityLabel adds the shared label to created nodes and to the
// endpoints of created arcs.
func withEntityLabel(q query.Query) (query.Query, error) {
	switch q.Kind {
	case query.KindCreateNode:
		return query.CreateNode(q.Args.Props, append(slices.Clone(q.Args.Labels), entityLabel)...)
	case query.KindCreateArc:
		from, to := q.Args.From, q.Args.To
		from.Labels = append(slices.Clone(from.Labels), entityLabel)
		to.Labels = append(slices.Clone(to.Labels), entityLabel)
		return query.CreateArc(from, q.Args.Rel, to, q.Args.Props)
	}
	return q, nil
}

// Backend returns "neo4j".
func (s *Store) Backend() string { return "neo4j" }

// Run executes q.Text with q.Params in an auto-commit transaction.
func (s *Store) Run(ctx context.Context, q query.Query) ([]graphstore.Row, error) {
	mode := neo4j.AccessModeWrite
	if readOnly(q.Kind) {
		mode = neo4j.AccessModeRead
	}
	q, err := withEntityLabel(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.exec(ctx, mode, q.Text, q.Params)
	if err != nil {
		return nil, ontoerr.With(err, ontoerr.FieldQueryKind(string(q.Kind)))
	}
	return rows, nil
}

func (s *Store) exec(ctx context.Context, mode neo4j.AccessMode, text string, params map[string]any) ([]graphstore.Row, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: mode})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, text, params)
	if err != nil {
		return nil, classify(err, "running cypher")
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, classify(err, "collecting cypher results")
	}
	return toRows(records), nil
}

// InTx runs fn inside one managed write transaction. The driver may retry
// fn on transient cluster errors, so fn must be safe to repeat.
func (s *Store) InTx(ctx context.Context, fn func(graphstore.Runner) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&txRunner{tx: tx})
	})
	if err != nil {
		if ontoerr.CodeOf(err) != "" {
			return err
		}
		return classify(err, "executing write transaction")
	}
	return nil
}

// Ping verifies the driver can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.driver.VerifyConnectivity(ctx), "pinging neo4j")
}

// Close releases the driver's connection pool.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (t *txRunner) Run(ctx context.Context, q query.Query) ([]graphstore.Row, error) {
	q, err := withEntityLabel(q)
	if err != nil {
		return nil, err
	}
	result, err := t.tx.Run(ctx, q.Text, q.Params)
	if err != nil {
		return nil, ontoerr.With(classify(err, "running cypher in transaction"), ontoerr.FieldQueryKind(string(q.Kind)))
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, classify(err, "collecting cypher results")
	}
	return toRows(records), nil
}

func readOnly(k query.Kind) bool {
	switch k {
	case query.KindMatchNode, query.KindMatchLabels, query.KindMatchProperty, query.KindClosure,
		query.KindAttached, query.KindNeighbors, query.KindRoots, query.KindAllNodes, query.KindArcs:
		return true
	}
	return false
}

func toRows(records []*neo4j.Record) []graphstore.Row {
	rows := make([]graphstore.Row, 0, len(records))
	for _, rec := range records {
		row := make(graphstore.Row, len(rec.Keys))
		for i, key := range rec.Keys {
			if i < len(rec.Values) {
				row[key] = toValue(rec.Values[i])
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// toValue maps driver-native values onto the closed graphstore.Value set.
func toValue(v any) graphstore.Value {
	switch t := v.(type) {
	case neo4j.Node:
		return graphstore.RawNode{ID: t.ElementId, Labels: domainLabels(t.Labels), Props: t.Props}
	case *neo4j.Node:
		return graphstore.RawNode{ID: t.ElementId, Labels: domainLabels(t.Labels), Props: t.Props}
	case neo4j.Relationship:
		return graphstore.RawEdge{ID: t.ElementId, Type: t.Type, StartID: t.StartElementId, EndID: t.EndElementId, Props: t.Props}
	case *neo4j.Relationship:
		return graphstore.RawEdge{ID: t.ElementId, Type: t.Type, StartID: t.StartElementId, EndID: t.EndElementId, Props: t.Props}
	default:
		return graphstore.Scalar{V: v}
	}
}

func domainLabels(labels []string) []string {
	if !slices.Contains(labels, entityLabel) {
		return labels
	}
	return slices.DeleteFunc(slices.Clone(labels), func(l string) bool { return l == entityLabel })
}

const constraintFailed = "Neo.ClientError.Schema.ConstraintValidationFailed"

func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) || errors.Is(err, context.DeadlineExceeded) {
		return ontoerr.Wrap(err, ontoerr.CodeStoreConnectionUnavailable, msg)
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == constraintFailed {
		return ontoerr.Wrap(err, ontoerr.CodeStoreConflict, msg)
	}
	return ontoerr.Wrap(err, ontoerr.CodeStoreDatabaseFailure, msg)
}
