// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ontology

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/query"
)

// NodeArcs is a node together with its outgoing arcs.
type NodeArcs struct {
	Node entity.Node  `json:"node"`
	Arcs []entity.Arc `json:"arcs"`
}

// GetOntology returns every node in the graph with its outgoing arcs.
func (e *Engine) GetOntology(ctx context.Context) ([]NodeArcs, error) {
	var (
		nodes []entity.Node
		arcs  []entity.Arc
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.store.Run(gctx, query.AllNodes())
		if err != nil {
			return err
		}
		nodes = decodeAll(rows, query.ColNode)
		return nil
	})
	g.Go(func() error {
		q, err := query.Arcs("")
		rows, err := exec(gctx, e.store, q, err)
		if err != nil {
			return err
		}
		arcs = decodeArcs(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]NodeArcs, 0, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		out = append(out, NodeArcs{Node: n, Arcs: []entity.Arc{}})
		index[n.URI] = i
	}
	for _, a := range arcs {
		if i, ok := index[a.From]; ok {
			out[i].Arcs = append(out[i].Arcs, a)
		}
	}
	return out, nil
}
