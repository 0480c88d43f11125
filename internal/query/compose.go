// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package query

import (
	"fmt"
	"maps"
	"slices"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// MatchNode looks up a single node by uri, optionally label-filtered.
func MatchNode(uri string, labels ...string) (Query, error) {
	if err := checkAll(labels); err != nil {
		return Query{}, err
	}
	if uri == "" {
		return Query{}, argsError(KindMatchNode, "uri is required")
	}
	return Query{
		Kind:   KindMatchNode,
		Text:   fmt.Sprintf("MATCH (n%s {uri: $uri}) RETURN n LIMIT 1", labelExpr(labels)),
		Params: map[string]any{"uri": uri},
		Args:   Args{Labels: clone(labels), URIs: []string{uri}},
	}, nil
}

// MatchLabels returns every node carrying all of the given labels.
func MatchLabels(labels ...string) (Query, error) {
	if len(labels) == 0 {
		return Query{}, argsError(KindMatchLabels, "at least one label is required")
	}
	if err := checkAll(labels); err != nil {
		return Query{}, err
	}
	return Query{
		Kind:   KindMatchLabels,
		Text:   fmt.Sprintf("MATCH (n%s) RETURN n", labelExpr(labels)),
		Params: map[string]any{},
		Args:   Args{Labels: clone(labels)},
	}, nil
}

// MatchProperty returns nodes under labels whose property key equals value.
// The key travels as a parameter, so it needs no sanitization.
func MatchProperty(key string, value any, labels ...string) (Query, error) {
	if err := checkAll(labels); err != nil {
		return Query{}, err
	}
	if key == "" {
		return Query{}, argsError(KindMatchProperty, "property key is required")
	}
	return Query{
		Kind:   KindMatchProperty,
		Text:   fmt.Sprintf("MATCH (n%s) WHERE n[$key] = $value RETURN n", labelExpr(labels)),
		Params: map[string]any{"key": key, "value": value},
		Args:   Args{Labels: clone(labels), Key: key, Value: value},
	}, nil
}

// Closure walks rel transitively from the node at uri. Out yields everything
// reachable along outgoing edges (ancestors for SUBCLASS_OF), In the reverse.
// The anchor appears in the result only when it sits on a cycle.
func Closure(uri, rel string, dir Direction, labels ...string) (Query, error) {
	if err := checkAll(append([]string{rel}, labels...)); err != nil {
		return Query{}, err
	}
	if uri == "" {
		return Query{}, argsError(KindClosure, "uri is required")
	}
	var pattern string
	switch dir {
	case Out:
		pattern = "-[:%s*1..]->"
	case In:
		pattern = "<-[:%s*1..]-"
	default:
		return Query{}, argsError(KindClosure, "closure direction must be in or out")
	}
	le := labelExpr(labels)
	return Query{
		Kind: KindClosure,
		Text: fmt.Sprintf("MATCH (a%s {uri: $uri})"+pattern+"(n%s) RETURN DISTINCT n",
			le, quote(rel), le),
		Params: map[string]any{"uri": uri},
		Args:   Args{Labels: clone(labels), Anchor: clone(labels), URIs: []string{uri}, Rel: rel, Dir: dir},
	}, nil
}

// Attached joins property nodes labeled propLabel to the anchor nodes in
// uris through rel, ignoring edge orientation. With rangeRel set, the range
// node of each property is resolved as an optional column.
func Attached(uris []string, propLabel, rel, rangeRel string, anchor ...string) (Query, error) {
	ids := append([]string{propLabel, rel}, anchor...)
	if rangeRel != "" {
		ids = append(ids, rangeRel)
	}
	if err := checkAll(ids); err != nil {
		return Query{}, err
	}

	ae := labelExpr(anchor)
	text := fmt.Sprintf("MATCH (p%s)-[:%s]-(domain%s) WHERE domain.uri IN $uris ",
		labelExpr([]string{propLabel}), quote(rel), ae)
	if rangeRel != "" {
		text += fmt.Sprintf("OPTIONAL MATCH (p)-[:%s]->(target%s) RETURN DISTINCT p, domain, target",
			quote(rangeRel), ae)
	} else {
		text += "RETURN DISTINCT p, domain"
	}
	return Query{
		Kind:   KindAttached,
		Text:   text,
		Params: map[string]any{"uris": clone(uris)},
		Args: Args{
			Labels:   []string{propLabel},
			Anchor:   clone(anchor),
			URIs:     clone(uris),
			Rel:      rel,
			RangeRel: rangeRel,
			Dir:      Both,
		},
	}, nil
}

// Neighbors returns the nodes one rel hop away from the anchor nodes in
// uris, with the anchor uri reported in the via column.
func Neighbors(uris []string, rel string, dir Direction, anchor, labels []string) (Query, error) {
	if err := checkAll(slices.Concat([]string{rel}, anchor, labels)); err != nil {
		return Query{}, err
	}
	ae, le := labelExpr(anchor), labelExpr(labels)
	var pattern string
	switch dir {
	case Out:
		pattern = fmt.Sprintf("(a%s)-[:%s]->(n%s)", ae, quote(rel), le)
	case In:
		pattern = fmt.Sprintf("(n%s)-[:%s]->(a%s)", le, quote(rel), ae)
	default:
		return Query{}, argsError(KindNeighbors, "neighbor direction must be in or out")
	}
	return Query{
		Kind:   KindNeighbors,
		Text:   "MATCH " + pattern + " WHERE a.uri IN $uris RETURN DISTINCT n, a.uri AS via",
		Params: map[string]any{"uris": clone(uris)},
		Args:   Args{Labels: clone(labels), Anchor: clone(anchor), URIs: clone(uris), Rel: rel, Dir: dir},
	}, nil
}

// Roots returns nodes under labels with no outgoing rel edge.
func Roots(rel string, labels ...string) (Query, error) {
	if err := checkAll(append([]string{rel}, labels...)); err != nil {
		return Query{}, err
	}
	return Query{
		Kind:   KindRoots,
		Text:   fmt.Sprintf("MATCH (n%s) WHERE NOT (n)-[:%s]->() RETURN n", labelExpr(labels), quote(rel)),
		Params: map[string]any{},
		Args:   Args{Labels: clone(labels), Rel: rel, Dir: Out},
	}, nil
}

// AllNodes returns every node in the graph.
func AllNodes() Query {
	return Query{Kind: KindAllNodes, Text: "MATCH (n) RETURN n", Params: map[string]any{}}
}

// Arcs returns every edge, or only edges of type rel when rel is non-empty,
// with endpoint uris in the from and to columns.
func Arcs(rel string) (Query, error) {
	typ := ""
	if rel != "" {
		if err := CheckIdentifier(rel); err != nil {
			return Query{}, err
		}
		typ = ":" + quote(rel)
	}
	return Query{
		Kind:   KindArcs,
		Text:   fmt.Sprintf("MATCH (a)-[r%s]->(b) RETURN r, a.uri AS from, b.uri AS to", typ),
		Params: map[string]any{},
		Args:   Args{Rel: rel},
	}, nil
}

// CreateNode creates a node with the given labels and property map. The
// caller is responsible for putting a uri in props.
func CreateNode(props map[string]any, labels ...string) (Query, error) {
	if len(labels) == 0 {
		return Query{}, argsError(KindCreateNode, "at least one label is required")
	}
	if err := checkAll(labels); err != nil {
		return Query{}, err
	}
	uri, _ := props["uri"].(string)
	if uri == "" {
		return Query{}, argsError(KindCreateNode, "uri property is required")
	}
	p := cloneMap(props)
	return Query{
		Kind:   KindCreateNode,
		Text:   fmt.Sprintf("CREATE (n%s) SET n = $props RETURN n", labelExpr(labels)),
		Params: map[string]any{"props": p},
		Args:   Args{Labels: clone(labels), URIs: []string{uri}, Props: p},
	}, nil
}

// CreateArc links from -[rel]-> to. When either endpoint is missing the
// statement yields no rows and nothing is created.
func CreateArc(from Ref, rel string, to Ref, props map[string]any) (Query, error) {
	if err := checkAll(slices.Concat([]string{rel}, from.Labels, to.Labels)); err != nil {
		return Query{}, err
	}
	if from.URI == "" || to.URI == "" {
		return Query{}, argsError(KindCreateArc, "both endpoint uris are required")
	}
	p := cloneMap(props)
	return Query{
		Kind: KindCreateArc,
		Text: fmt.Sprintf("MATCH (a%s {uri: $from}) MATCH (b%s {uri: $to}) CREATE (a)-[r:%s]->(b) SET r = $props RETURN a, r, b",
			labelExpr(from.Labels), labelExpr(to.Labels), quote(rel)),
		Params: map[string]any{"from": from.URI, "to": to.URI, "props": p},
		Args: Args{
			Rel:   rel,
			From:  Ref{URI: from.URI, Labels: clone(from.Labels)},
			To:    Ref{URI: to.URI, Labels: clone(to.Labels)},
			Props: p,
		},
	}, nil
}

// UpdateNode patches (Merge) or replaces (Overwrite) the properties of the
// node at uri. The uri property is never changed: it is stripped from a
// merge patch and forced back on an overwrite.
func UpdateNode(uri string, props map[string]any, mode UpdateMode, labels ...string) (Query, error) {
	if err := checkAll(labels); err != nil {
		return Query{}, err
	}
	if uri == "" {
		return Query{}, argsError(KindUpdateNode, "uri is required")
	}
	p := cloneMap(props)
	var set string
	switch mode {
	case Merge:
		delete(p, "uri")
		set = "SET n += $props"
	case Overwrite:
		p["uri"] = uri
		set = "SET n = $props"
	default:
		return Query{}, argsError(KindUpdateNode, "unknown update mode")
	}
	return Query{
		Kind:   KindUpdateNode,
		Text:   fmt.Sprintf("MATCH (n%s {uri: $uri}) %s RETURN n", labelExpr(labels), set),
		Params: map[string]any{"uri": uri, "props": p},
		Args:   Args{Labels: clone(labels), URIs: []string{uri}, Props: p, Mode: mode},
	}, nil
}

// DeleteNodes removes the nodes at uris and reports how many went away in
// the cnt column. A plain (non-detach) delete fails while edges remain.
func DeleteNodes(uris []string, detach bool, labels ...string) (Query, error) {
	if err := checkAll(labels); err != nil {
		return Query{}, err
	}
	verb := "DELETE"
	if detach {
		verb = "DETACH DELETE"
	}
	return Query{
		Kind:   KindDeleteNodes,
		Text:   fmt.Sprintf("MATCH (n%s) WHERE n.uri IN $uris %s n RETURN count(*) AS cnt", labelExpr(labels), verb),
		Params: map[string]any{"uris": clone(uris)},
		Args:   Args{Labels: clone(labels), URIs: clone(uris), Detach: detach},
	}, nil
}

// DeleteArcs removes every edge whose type is rel.
func DeleteArcs(rel string) (Query, error) {
	if err := CheckIdentifier(rel); err != nil {
		return Query{}, err
	}
	return Query{
		Kind:   KindDeleteArcs,
		Text:   fmt.Sprintf("MATCH ()-[r:%s]->() DELETE r RETURN count(*) AS cnt", quote(rel)),
		Params: map[string]any{},
		Args:   Args{Rel: rel},
	}, nil
}

// ClearProperty removes key from every node labeled labels that has a rel
// edge to one of the anchor nodes in uris. cnt reports the nodes touched.
func ClearProperty(uris []string, key, rel string, anchor, labels []string) (Query, error) {
	if err := checkAll(slices.Concat([]string{rel}, anchor, labels)); err != nil {
		return Query{}, err
	}
	if key == "" {
		return Query{}, argsError(KindClearProperty, "property key is required")
	}
	return Query{
		Kind: KindClearProperty,
		Text: fmt.Sprintf("MATCH (n%s)-[:%s]->(a%s) WHERE a.uri IN $uris WITH DISTINCT n SET n += $patch RETURN count(n) AS cnt",
			labelExpr(labels), quote(rel), labelExpr(anchor)),
		Params: map[string]any{"uris": clone(uris), "patch": map[string]any{key: nil}},
		Args:   Args{Labels: clone(labels), Anchor: clone(anchor), URIs: clone(uris), Key: key, Rel: rel, Dir: In},
	}, nil
}

func argsError(kind Kind, msg string) error {
	return ontoerr.New(ontoerr.CodeQueryArgsInvalid, msg, ontoerr.FieldQueryKind(string(kind)))
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
