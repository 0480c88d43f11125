// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package ontology implements classes, objects and their datatype and object
// properties on top of a graphstore backend. The engine is stateless apart
// from the injected store handle; every operation is a bounded sequence of
// composed statements.
package ontology

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/events"
	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/metrics"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// ValidationMode decides what happens to object properties outside the
// class signature.
type ValidationMode string

const (
	// ValidationDrop removes unknown properties and logs a warning.
	ValidationDrop ValidationMode = "drop"
	// ValidationReject fails the write with ontology.object.validate.invalid.
	ValidationReject ValidationMode = "reject"
)

// ParseValidationMode parses s. The empty string selects ValidationDrop.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ValidationDrop:
		return ValidationDrop, nil
	case ValidationReject:
		return ValidationReject, nil
	}
	return "", ontoerr.Errorf(ontoerr.CodeConfigValidateInvalidValue,
		"invalid validation mode %q: must be drop or reject", s)
}

// SignatureScope decides which classes contribute properties to a class
// signature. The same scope bounds attribute clearing in
// DeleteClassAttribute.
type SignatureScope string

const (
	// ScopeInherited includes every ancestor class; clearing reaches every
	// descendant class.
	ScopeInherited SignatureScope = "inherited"
	// ScopeDirect includes only the class itself.
	ScopeDirect SignatureScope = "direct"
)

// ParseSignatureScope parses s. The empty string selects ScopeInherited.
func ParseSignatureScope(s string) (SignatureScope, error) {
	switch SignatureScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeInherited:
		return ScopeInherited, nil
	case ScopeDirect:
		return ScopeDirect, nil
	}
	return "", ontoerr.Errorf(ontoerr.CodeConfigValidateInvalidValue,
		"invalid signature scope %q: must be inherited or direct", s)
}

// structuralRels may never be used or removed as instance relation types.
var structuralRels = []string{entity.RelSubclassOf, entity.RelDomain, entity.RelRange, entity.RelTypeOf}

// Config holds the engine's dependencies and policies.
type Config struct {
	// Store is required. When it also implements graphstore.Transactor,
	// cascades and object creation run in one transaction.
	Store      graphstore.Runner
	Validation ValidationMode
	Scope      SignatureScope
	// KeyLength is the length of generated uris; zero means
	// entity.DefaultKeyLength.
	KeyLength int
	Publisher events.Publisher
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

// Engine executes ontology operations.
type Engine struct {
	store      graphstore.Runner
	validation ValidationMode
	scope      SignatureScope
	keyLength  int
	publisher  events.Publisher
	metrics    *metrics.Registry
	logger     *slog.Logger
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, ontoerr.New(ontoerr.CodeOntologyInputInvalid, "store is required")
	}
	validation, err := ParseValidationMode(string(cfg.Validation))
	if err != nil {
		return nil, err
	}
	scope, err := ParseSignatureScope(string(cfg.Scope))
	if err != nil {
		return nil, err
	}
	keyLength := cfg.KeyLength
	if keyLength == 0 {
		keyLength = entity.DefaultKeyLength
	}
	if keyLength < 0 {
		return nil, ontoerr.Errorf(ontoerr.CodeConfigValidateInvalidValue, "key length must be positive, got %d", keyLength)
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      cfg.Store,
		validation: validation,
		scope:      scope,
		keyLength:  keyLength,
		publisher:  publisher,
		metrics:    cfg.Metrics,
		logger:     logger.With("component", "ontology"),
	}, nil
}

// ValidationMode returns the active validation policy.
func (e *Engine) ValidationMode() ValidationMode { return e.validation }

// SignatureScope returns the active signature scope.
func (e *Engine) SignatureScope() SignatureScope { return e.scope }

func (e *Engine) newKey() (string, error) {
	return entity.GenerateKey(e.keyLength)
}

// exec runs a composed statement, short-circuiting on a composition error.
func exec(ctx context.Context, r graphstore.Runner, q query.Query, err error) ([]graphstore.Row, error) {
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, q)
}

// first returns the node in column col of the first row, or nil.
func first(rows []graphstore.Row, col string) *entity.Node {
	for _, row := range rows {
		n := entity.DecodeNode(row[col])
		if !n.IsZero() {
			return &n
		}
	}
	return nil
}

// decodeAll decodes column col of every row, collapsing duplicate uris and
// skipping rows without a node.
func decodeAll(rows []graphstore.Row, col string) []entity.Node {
	out := make([]entity.Node, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		n := entity.DecodeNode(row[col])
		if n.IsZero() || seen[n.URI] {
			continue
		}
		seen[n.URI] = true
		out = append(out, n)
	}
	return out
}

func uriSet(groups ...[]entity.Node) []string {
	var out []string
	seen := map[string]bool{}
	for _, g := range groups {
		for _, n := range g {
			if n.URI == "" || seen[n.URI] {
				continue
			}
			seen[n.URI] = true
			out = append(out, n.URI)
		}
	}
	return out
}

// mutated records a successful mutation and publishes its change event.
// Publishing failures are logged and never surface to the caller.
func (e *Engine) mutated(ctx context.Context, kind, op, uri string, stats map[string]int) {
	e.metrics.RecordMutation(kind, op)
	ev := events.Event{Kind: kind, Op: op, URI: uri, Stats: stats, At: time.Now().UTC()}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("publishing change event failed",
			"kind", kind, "op", op, "uri", uri, "error", err)
	}
}

// IsStructural reports whether rel is one of the relation types the ontology
// model itself uses.
func IsStructural(rel string) bool {
	return slices.Contains(structuralRels, rel)
}
