// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package events publishes ontology change notifications.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sigil-dev/ontograph/internal/metrics"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "ontograph"

// Entity kinds carried in Event.Kind.
const (
	KindClass            = "class"
	KindObject           = "object"
	KindDatatypeProperty = "datatype_property"
	KindObjectProperty   = "object_property"
)

// Operations carried in Event.Op.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
	OpLinked  = "linked"
)

// Event describes one successful mutation.
type Event struct {
	Kind  string         `json:"kind"`
	Op    string         `json:"op"`
	URI   string         `json:"uri"`
	Stats map[string]int `json:"stats,omitempty"`
	At    time.Time      `json:"at"`
}

// Subject returns the NATS subject for e under prefix.
func (e Event) Subject(prefix string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + e.Kind + "." + e.Op
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
	// FlushTimeout bounds Flush when the caller's context has no deadline.
	// Zero means DefaultFlushTimeout.
	FlushTimeout time.Duration
}

// DefaultFlushTimeout applies to Flush calls without a context deadline.
const DefaultFlushTimeout = 5 * time.Second

// NATSPublisher publishes events as JSON on <prefix>.<kind>.<op>.
type NATSPublisher struct {
	conn         *nats.Conn
	prefix       string
	flushTimeout time.Duration
	metrics      *metrics.Registry
	logger       *slog.Logger
}

// NewNATS connects to cfg.URL. The connection reconnects forever; publishes
// made while disconnected are buffered by the client.
func NewNATS(cfg NATSConfig, reg *metrics.Registry) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, ontoerr.New(ontoerr.CodeEventsConnectFailure, "nats url is required")
	}
	name := cfg.Name
	if name == "" {
		name = "ontograph"
	}
	logger := slog.Default().With("component", "events")
	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeEventsConnectFailure, "connecting to nats",
			ontoerr.Field("nats_url", cfg.URL))
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	flushTimeout := cfg.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	return &NATSPublisher{conn: conn, prefix: prefix, flushTimeout: flushTimeout, metrics: reg, logger: logger}, nil
}

// Publish sends e. A zero At is stamped with the current time.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.metrics.RecordPublish("error")
		return ontoerr.Wrap(err, ontoerr.CodeEventsPublishFailure, "encoding event")
	}
	subject := e.Subject(p.prefix)
	if err := p.conn.Publish(subject, data); err != nil {
		p.metrics.RecordPublish("error")
		return ontoerr.Wrap(err, ontoerr.CodeEventsPublishFailure, "publishing event",
			ontoerr.Field("subject", subject))
	}
	p.metrics.RecordPublish("ok")
	return nil
}

// Flush blocks until the server has acknowledged all buffered publishes.
// A ctx without a deadline is bounded by the configured flush timeout.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ontoerr.Wrap(err, ontoerr.CodeEventsPublishFailure, "flushing nats connection")
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return ontoerr.Wrap(err, ontoerr.CodeEventsPublishFailure, "draining nats connection")
	}
	return nil
}
