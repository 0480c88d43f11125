// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphstore

import (
	"context"
	"time"

	"github.com/sigil-dev/ontograph/internal/metrics"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// Instrument wraps s so that every statement is counted and timed. The
// wrapper keeps transaction support when s has it.
func Instrument(s Store, reg *metrics.Registry) Store {
	base := &instrumented{Store: s, reg: reg}
	if tx, ok := s.(Transactor); ok {
		return &instrumentedTx{instrumented: base, tx: tx}
	}
	return base
}

type instrumented struct {
	Store
	reg *metrics.Registry
}

func (i *instrumented) Run(ctx context.Context, q query.Query) ([]Row, error) {
	return observe(ctx, i.Store, i.reg, i.Backend(), q)
}

type instrumentedTx struct {
	*instrumented
	tx Transactor
}

func (i *instrumentedTx) InTx(ctx context.Context, fn func(Runner) error) error {
	return i.tx.InTx(ctx, func(r Runner) error {
		return fn(runnerFunc(func(ctx context.Context, q query.Query) ([]Row, error) {
			return observe(ctx, r, i.reg, i.Backend(), q)
		}))
	})
}

type runnerFunc func(ctx context.Context, q query.Query) ([]Row, error)

func (f runnerFunc) Run(ctx context.Context, q query.Query) ([]Row, error) { return f(ctx, q) }

func observe(ctx context.Context, r Runner, reg *metrics.Registry, backend string, q query.Query) ([]Row, error) {
	start := time.Now()
	rows, err := r.Run(ctx, q)
	reg.ObserveQuery(backend, string(q.Kind), time.Since(start), string(ontoerr.CodeOf(err)), err != nil)
	return rows, err
}
