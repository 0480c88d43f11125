// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphstore

import (
	"context"
	"slices"
	"sync"

	"github.com/sigil-dev/ontograph/internal/metrics"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// StorageConfig selects and configures a backend.
type StorageConfig struct {
	Backend     string // "sqlite" (default), "postgres" or "neo4j"
	SQLitePath  string
	PostgresDSN string
	Neo4j       Neo4jConfig
}

// Neo4jConfig holds the bolt connection settings.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Factory opens a store from configuration.
type Factory func(ctx context.Context, cfg *StorageConfig) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named backend. Backend packages
// call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the configured store. When reg is non-nil the store is
// wrapped with query metrics.
func Open(ctx context.Context, cfg *StorageConfig, reg *metrics.Registry) (Store, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, ontoerr.New(ontoerr.CodeStoreBackendUnsupported,
			"unsupported storage backend: "+backend, ontoerr.FieldBackend(backend))
	}

	if cfg == nil {
		cfg = &StorageConfig{}
	}
	s, err := factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		s = Instrument(s, reg)
	}
	return s, nil
}
