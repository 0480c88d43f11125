// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package query composes the parameterized graph statements used by the
// ontology engine. Every Query carries its Cypher rendering together with
// the structured arguments it was built from, so backends that do not speak
// Cypher can execute the same statement.
package query

// Kind identifies the shape of a composed statement.
type Kind string

const (
	KindMatchNode     Kind = "match_node"
	KindMatchLabels   Kind = "match_labels"
	KindMatchProperty Kind = "match_property"
	KindClosure       Kind = "closure"
	KindAttached      Kind = "attached"
	KindNeighbors     Kind = "neighbors"
	KindRoots         Kind = "roots"
	KindAllNodes      Kind = "all_nodes"
	KindArcs          Kind = "arcs"
	KindCreateNode    Kind = "create_node"
	KindCreateArc     Kind = "create_arc"
	KindUpdateNode    Kind = "update_node"
	KindDeleteNodes   Kind = "delete_nodes"
	KindDeleteArcs    Kind = "delete_arcs"
	KindClearProperty Kind = "clear_property"
)

// Result columns. Backends must name their output fields with these keys.
const (
	ColNode     = "n"
	ColProperty = "p"
	ColDomain   = "domain"
	ColRange    = "target"
	ColVia      = "via"
	ColStart    = "a"
	ColArc      = "r"
	ColEnd      = "b"
	ColFrom     = "from"
	ColTo       = "to"
	ColCount    = "cnt"
)

// Direction selects which way a relation is followed from the anchor node.
type Direction int

const (
	// Out follows anchor -[rel]-> n.
	Out Direction = iota + 1
	// In follows n -[rel]-> anchor.
	In
	// Both ignores edge orientation.
	Both
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// UpdateMode selects merge (patch) or overwrite semantics for UpdateNode.
type UpdateMode int

const (
	Merge UpdateMode = iota
	Overwrite
)

// Ref addresses a node by uri, optionally constrained to labels.
type Ref struct {
	URI    string
	Labels []string
}

// Args is the structured form of a Query. Which fields are meaningful
// depends on the Kind; unused fields stay zero.
type Args struct {
	// Labels constrain the node being returned, created, updated or deleted.
	Labels []string
	// Anchor constrains the node the statement starts from.
	Anchor []string
	URIs   []string
	Key    string
	Value  any
	Rel    string
	// RangeRel, when set on an Attached query, also resolves the range class.
	RangeRel string
	Dir      Direction
	Props    map[string]any
	Mode     UpdateMode
	Detach   bool
	From     Ref
	To       Ref
}

// Query is a composed statement ready for a graphstore backend.
type Query struct {
	Kind   Kind
	Text   string
	Params map[string]any
	Args   Args
}

// URI returns the first addressed uri, or "".
func (q Query) URI() string {
	if len(q.Args.URIs) == 0 {
		return ""
	}
	return q.Args.URIs[0]
}
