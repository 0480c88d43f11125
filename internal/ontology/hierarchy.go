// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ontology

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
)

// Hierarchy is an in-memory index of the SUBCLASS_OF graph. Traversals keep
// a visited set, so a cycle in stored data ends the walk instead of looping.
type Hierarchy struct {
	classes  map[string]entity.Node
	parents  map[string][]string
	children map[string][]string
}

// NewHierarchy indexes classes and the SUBCLASS_OF arcs between them. Arcs
// with an endpoint outside classes are ignored.
func NewHierarchy(classes []entity.Node, arcs []entity.Arc) *Hierarchy {
	h := &Hierarchy{
		classes:  make(map[string]entity.Node, len(classes)),
		parents:  make(map[string][]string),
		children: make(map[string][]string),
	}
	for _, c := range classes {
		if c.URI != "" {
			h.classes[c.URI] = c
		}
	}
	for _, a := range arcs {
		if a.Type != "" && a.Type != entity.RelSubclassOf {
			continue
		}
		if _, ok := h.classes[a.From]; !ok {
			continue
		}
		if _, ok := h.classes[a.To]; !ok {
			continue
		}
		if !slices.Contains(h.parents[a.From], a.To) {
			h.parents[a.From] = append(h.parents[a.From], a.To)
			h.children[a.To] = append(h.children[a.To], a.From)
		}
	}
	for _, m := range []map[string][]string{h.parents, h.children} {
		for k := range m {
			slices.Sort(m[k])
		}
	}
	return h
}

// Hierarchy loads every class and SUBCLASS_OF arc.
func (e *Engine) Hierarchy(ctx context.Context) (*Hierarchy, error) {
	var (
		classes []entity.Node
		arcs    []entity.Arc
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := query.MatchLabels(entity.LabelClass)
		rows, err := exec(gctx, e.store, q, err)
		if err != nil {
			return err
		}
		classes = decodeAll(rows, query.ColNode)
		return nil
	})
	g.Go(func() error {
		q, err := query.Arcs(entity.RelSubclassOf)
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
	return NewHierarchy(classes, arcs), nil
}

func decodeArcs(rows []graphstore.Row) []entity.Arc {
	out := make([]entity.Arc, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.DecodeArc(row[query.ColArc], row[query.ColFrom], row[query.ColTo]))
	}
	return out
}

// Len returns the number of indexed classes.
func (h *Hierarchy) Len() int { return len(h.classes) }

// Class returns the indexed class at uri.
func (h *Hierarchy) Class(uri string) (entity.Node, bool) {
	c, ok := h.classes[uri]
	return c, ok
}

// URIs returns every class uri in sorted order.
func (h *Hierarchy) URIs() []string {
	out := make([]string, 0, len(h.classes))
	for uri := range h.classes {
		out = append(out, uri)
	}
	slices.Sort(out)
	return out
}

// Parents returns the direct parents of uri.
func (h *Hierarchy) Parents(uri string) []string { return slices.Clone(h.parents[uri]) }

// Children returns the direct children of uri.
func (h *Hierarchy) Children(uri string) []string { return slices.Clone(h.children[uri]) }

// Ancestors returns every class reachable from uri along SUBCLASS_OF.
func (h *Hierarchy) Ancestors(uri string) []string { return walk(h.parents, uri) }

// Descendants returns every class that reaches uri along SUBCLASS_OF.
func (h *Hierarchy) Descendants(uri string) []string { return walk(h.children, uri) }

// Roots returns the classes without parents.
func (h *Hierarchy) Roots() []string {
	var out []string
	for _, uri := range h.URIs() {
		if len(h.parents[uri]) == 0 {
			out = append(out, uri)
		}
	}
	return out
}

// InCycle reports whether uri is its own ancestor.
func (h *Hierarchy) InCycle(uri string) bool {
	return slices.Contains(h.Ancestors(uri), uri)
}

// Cyclic returns the sorted uris of every class that sits on a cycle.
func (h *Hierarchy) Cyclic() []string {
	var out []string
	for _, uri := range h.URIs() {
		if h.InCycle(uri) {
			out = append(out, uri)
		}
	}
	return out
}

// Order returns the classes parents first. Classes on a cycle cannot be
// ordered and are appended last in uri order.
func (h *Hierarchy) Order() []string {
	pending := make(map[string]int, len(h.classes))
	for uri := range h.classes {
		pending[uri] = len(h.parents[uri])
	}
	ready := h.Roots()
	out := make([]string, 0, len(h.classes))
	for len(ready) > 0 {
		uri := ready[0]
		ready = ready[1:]
		out = append(out, uri)
		delete(pending, uri)
		for _, child := range h.children[uri] {
			if _, ok := pending[child]; !ok {
				continue
			}
			pending[child]--
			if pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	rest := make([]string, 0, len(pending))
	for uri := range pending {
		rest = append(rest, uri)
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// walk is a breadth-first traversal from start along adj. start itself is
// included only when a cycle leads back to it.
func walk(adj map[string][]string, start string) []string {
	visited := map[string]bool{}
	queue := slices.Clone(adj[start])
	var out []string
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		if visited[uri] {
			continue
		}
		visited[uri] = true
		out = append(out, uri)
		queue = append(queue, adj[uri]...)
	}
	slices.Sort(out)
	return out
}
