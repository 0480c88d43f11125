// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sigil-dev/ontograph/internal/config"
	"github.com/sigil-dev/ontograph/internal/events"
	"github.com/sigil-dev/ontograph/internal/graphstore"
	_ "github.com/sigil-dev/ontograph/internal/graphstore/neo4j"   // register neo4j backend
	_ "github.com/sigil-dev/ontograph/internal/graphstore/sqlgraph" // register sqlite and postgres backends
	"github.com/sigil-dev/ontograph/internal/metrics"
	"github.com/sigil-dev/ontograph/internal/ontology"
	"github.com/sigil-dev/ontograph/internal/server"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// App holds the wired subsystems and manages their lifecycle.
type App struct {
	Store     graphstore.Store
	Engine    *ontology.Engine
	Publisher events.Publisher
	Metrics   *metrics.Registry
}

// WireApp opens the store, connects the event publisher and builds the
// engine. Metrics are collected only when withMetrics is set.
func WireApp(ctx context.Context, cfg *config.Config, dataDir string, withMetrics bool) (*App, error) {
	var reg *metrics.Registry
	if withMetrics {
		reg = metrics.New()
	}

	storeCfg := cfg.Storage.GraphStore(dataDir)
	if storeCfg.Backend == "" || storeCfg.Backend == "sqlite" {
		if err := ensureDataDir(dataDir); err != nil {
			return nil, err
		}
	}
	store, err := graphstore.Open(ctx, storeCfg, reg)
	if err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeCLISetupFailure, "opening graph store",
			ontoerr.FieldBackend(storeCfg.Backend))
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.NATSURL != "" {
		nc, err := events.NewNATS(events.NATSConfig{
			URL:           cfg.Events.NATSURL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
		}, reg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = nc
	}

	engine, err := ontology.New(ontology.Config{
		Store:      store,
		Validation: ontology.ValidationMode(cfg.Ontology.ValidationMode),
		Scope:      ontology.SignatureScope(cfg.Ontology.SignatureScope),
		KeyLength:  cfg.Ontology.KeyLength,
		Publisher:  publisher,
		Metrics:    reg,
	})
	if err != nil {
		_ = publisher.Close()
		_ = store.Close()
		return nil, err
	}

	slog.Debug("ontology engine ready",
		"backend", store.Backend(),
		"validation_mode", engine.ValidationMode(),
		"signature_scope", engine.SignatureScope())
	return &App{Store: store, Engine: engine, Publisher: publisher, Metrics: reg}, nil
}

// NewServer builds the HTTP server for a.
func (a *App) NewServer(cfg *config.Config) (*server.Server, error) {
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimitRPS,
			Burst:             cfg.Networking.RateLimitBurst,
		},
		Metrics: a.Metrics,
		Health:  a.Store,
	})
	if err != nil {
		return nil, err
	}
	srv.RegisterOntology(a.Engine)
	return srv, nil
}

// Close releases the publisher and the store.
func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Store.Close())
}
