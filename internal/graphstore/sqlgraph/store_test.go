// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlgraph_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/graphstore/sqlgraph"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlgraph.Store {
	t.Helper()
	s, err := sqlgraph.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func run(t *testing.T, r graphstore.Runner, q query.Query, err error) []graphstore.Row {
	t.Helper()
	require.NoError(t, err)
	rows, err := r.Run(context.Background(), q)
	require.NoError(t, err)
	return rows
}

func mkNode(t *testing.T, s graphstore.Runner, uri string, props map[string]any, labels ...string) graphstore.RawNode {
	t.Helper()
	p := map[string]any{"uri": uri}
	for k, v := range props {
		p[k] = v
	}
	q, err := query.CreateNode(p, labels...)
	rows := run(t, s, q, err)
	require.Len(t, rows, 1)
	n, ok := rows[0].Node(query.ColNode)
	require.True(t, ok)
	return n
}

func link(t *testing.T, s graphstore.Runner, from, rel, to string) int {
	t.Helper()
	q, err := query.CreateArc(query.Ref{URI: from}, rel, query.Ref{URI: to}, nil)
	return len(run(t, s, q, err))
}

func uris(rows []graphstore.Row, col string) []string {
	var out []string
	for _, r := range rows {
		if n, ok := r.Node(col); ok {
			out = append(out, n.Props["uri"].(string))
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := sqlgraph.OpenSQLite(context.Background(), "")
	assert.True(t, ontoerr.IsInvalidInput(err))
}

func TestPingAndBackend(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "sqlite", s.Backend())
}

func TestRegisteredBackendOpensSQLite(t *testing.T) {
	cfg := &graphstore.StorageConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "nested", "g.db")}
	s, err := graphstore.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, "sqlite", s.Backend())
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := sqlgraph.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	mkNode(t, s, "c1", map[string]any{"title": "Keep"}, "Class")
	require.NoError(t, s.Close())

	s2, err := sqlgraph.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()
	q, err := query.MatchNode("c1", "Class")
	rows := run(t, s2, q, err)
	require.Len(t, rows, 1)
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

func TestCreateAndMatchNode(t *testing.T) {
	s := openStore(t)
	created := mkNode(t, s, "person", map[string]any{"title": "Person", "rank": 3}, "Class")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"Class"}, created.Labels)
	assert.Equal(t, int64(3), created.Props["rank"])

	q, err := query.MatchNode("person", "Class")
	rows := run(t, s, q, err)
	require.Len(t, rows, 1)
	n, _ := rows[0].Node(query.ColNode)
	assert.Equal(t, created.ID, n.ID)
	assert.Equal(t, "Person", n.Props["title"])

	q, err = query.MatchNode("person", "Object")
	assert.Empty(t, run(t, s, q, err))

	q, err = query.MatchNode("missing")
	assert.Empty(t, run(t, s, q, err))
}

func TestCreateDuplicateURIConflicts(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "dup", nil, "Class")

	// uri is unique across labels, not per label.
	for _, label := range []string{"Class", "Object"} {
		q, err := query.CreateNode(map[string]any{"uri": "dup", "title": "second"}, label)
		require.NoError(t, err)
		_, err = s.Run(context.Background(), q)
		require.Error(t, err, label)
		assert.Equal(t, ontoerr.CodeStoreConflict, ontoerr.CodeOf(err), label)
		assert.True(t, ontoerr.IsConflict(err), label)
	}

	q, err := query.MatchNode("dup")
	rows := run(t, s, q, err)
	require.Len(t, rows, 1)
	n, _ := rows[0].Node(query.ColNode)
	assert.Equal(t, []string{"Class"}, n.Labels)
	assert.NotContains(t, n.Props, "title")
}

func TestMatchLabelsAndSemantics(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "a", nil, "Class", "Abstract")
	mkNode(t, s, "b", nil, "Class")
	mkNode(t, s, "c", nil, "Object")

	q, err := query.MatchLabels("Class")
	assert.ElementsMatch(t, []string{"a", "b"}, uris(run(t, s, q, err), query.ColNode))

	q, err = query.MatchLabels("Class", "Abstract")
	assert.Equal(t, []string{"a"}, uris(run(t, s, q, err), query.ColNode))

	all := run(t, s, query.AllNodes(), nil)
	assert.Len(t, all, 3)
}

func TestMatchPropertyComparesNormalizedValues(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "o1", map[string]any{"class_uri": "c1", "age": 30}, "Object")
	mkNode(t, s, "o2", map[string]any{"class_uri": "c2", "age": int64(31)}, "Object")

	q, err := query.MatchProperty("class_uri", "c1", "Object")
	assert.Equal(t, []string{"o1"}, uris(run(t, s, q, err), query.ColNode))

	q, err = query.MatchProperty("age", 31, "Object")
	assert.Equal(t, []string{"o2"}, uris(run(t, s, q, err), query.ColNode))

	q, err = query.MatchProperty("uri", "o2", "Object")
	assert.Equal(t, []string{"o2"}, uris(run(t, s, q, err), query.ColNode))
}

func TestMatchPropertyFiltersByTypeAndPresence(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "a", map[string]any{"title": "owner", "n": "30", "live": true, "w": 1.5}, "ObjectProperty")
	mkNode(t, s, "b", map[string]any{"title": "owner", "n": 30, "live": false}, "ObjectProperty")
	mkNode(t, s, "c", map[string]any{"title": "friend"}, "ObjectProperty")
	mkNode(t, s, "d", map[string]any{"title": "owner"}, "Class")

	tests := []struct {
		key   string
		value any
		want  []string
	}{
		{"title", "owner", []string{"a", "b"}},
		{"n", 30, []string{"b"}},
		{"n", "30", []string{"a"}},
		{"live", true, []string{"a"}},
		{"live", false, []string{"b"}},
		{"w", 1.5, []string{"a"}},
		{"tags", []string{"x"}, nil},
		{"missing", "x", nil},
		{"uri", 7, nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			q, err := query.MatchProperty(tt.key, tt.value, "ObjectProperty")
			assert.ElementsMatch(t, tt.want, uris(run(t, s, q, err), query.ColNode))
		})
	}
}

func TestUpdateNodeMergeAndOverwrite(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "o", map[string]any{"title": "Old", "keep": "yes"}, "Object")

	q, err := query.UpdateNode("o", map[string]any{"title": "New", "keep": nil, "extra": 1.5}, query.Merge)
	rows := run(t, s, q, err)
	require.Len(t, rows, 1)
	n, _ := rows[0].Node(query.ColNode)
	assert.Equal(t, "New", n.Props["title"])
	assert.NotContains(t, n.Props, "keep")
	assert.Equal(t, 1.5, n.Props["extra"])
	assert.Equal(t, "o", n.Props["uri"])

	q, err = query.UpdateNode("o", map[string]any{"description": "only"}, query.Overwrite)
	rows = run(t, s, q, err)
	n, _ = rows[0].Node(query.ColNode)
	assert.Equal(t, map[string]any{"uri": "o", "description": "only"}, n.Props)

	q, err = query.UpdateNode("ghost", map[string]any{"x": 1}, query.Merge)
	assert.Empty(t, run(t, s, q, err))
}

func TestDeleteNodesDetachAndPlain(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "a", nil, "Class")
	mkNode(t, s, "b", nil, "Class")
	mkNode(t, s, "lonely", nil, "Class")
	require.Equal(t, 1, link(t, s, "a", "SUBCLASS_OF", "b"))

	q, err := query.DeleteNodes([]string{"a"}, false)
	require.NoError(t, err)
	_, err = s.Run(context.Background(), q)
	require.Error(t, err)
	assert.True(t, ontoerr.IsConflict(err))

	q, err = query.DeleteNodes([]string{"lonely"}, false, "Class")
	assert.Equal(t, 1, graphstore.SumCount(run(t, s, q, err)))

	q, err = query.DeleteNodes([]string{"a", "b", "nope"}, true, "Class")
	assert.Equal(t, 2, graphstore.SumCount(run(t, s, q, err)))

	arcs, err := query.Arcs("")
	assert.Empty(t, run(t, s, arcs, err))
	assert.Empty(t, run(t, s, query.AllNodes(), nil))

	q, err = query.DeleteNodes(nil, true)
	assert.Equal(t, 0, graphstore.SumCount(run(t, s, q, err)))
}

// ---------------------------------------------------------------------------
// Arcs
// ---------------------------------------------------------------------------

func TestCreateArcMissingEndpointYieldsNoRows(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "a", nil, "Class")

	assert.Equal(t, 0, link(t, s, "a", "SUBCLASS_OF", "ghost"))
	assert.Equal(t, 0, link(t, s, "ghost", "SUBCLASS_OF", "a"))

	q, err := query.CreateArc(query.Ref{URI: "a", Labels: []string{"Object"}}, "X", query.Ref{URI: "a"}, nil)
	assert.Empty(t, run(t, s, q, err))
}

func TestCreateArcReturnsEndpoints(t *testing.T) {
	s := openStore(t)
	a := mkNode(t, s, "a", nil, "Object")
	b := mkNode(t, s, "b", nil, "Object")

	q, err := query.CreateArc(query.Ref{URI: "a"}, "owner", query.Ref{URI: "b"}, map[string]any{"since": 2020})
	rows := run(t, s, q, err)
	require.Len(t, rows, 1)

	edge, ok := rows[0][query.ColArc].(graphstore.RawEdge)
	require.True(t, ok)
	assert.Equal(t, "owner", edge.Type)
	assert.Equal(t, a.ID, edge.StartID)
	assert.Equal(t, b.ID, edge.EndID)
	assert.Equal(t, int64(2020), edge.Props["since"])

	q, err = query.Arcs("owner")
	arcs := run(t, s, q, err)
	require.Len(t, arcs, 1)
	assert.Equal(t, "a", arcs[0].String(query.ColFrom))
	assert.Equal(t, "b", arcs[0].String(query.ColTo))
}

func TestDeleteArcsByType(t *testing.T) {
	s := openStore(t)
	for _, u := range []string{"a", "b", "c"} {
		mkNode(t, s, u, nil, "Object")
	}
	link(t, s, "a", "k3yOwner", "b")
	link(t, s, "c", "k3yOwner", "b")
	link(t, s, "a", "other", "c")

	q, err := query.DeleteArcs("k3yOwner")
	assert.Equal(t, 2, graphstore.SumCount(run(t, s, q, err)))

	q, err = query.Arcs("")
	assert.Len(t, run(t, s, q, err), 1)
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

func TestClosureBothDirections(t *testing.T) {
	s := openStore(t)
	for _, u := range []string{"animal", "mammal", "dog", "cat", "rock"} {
		mkNode(t, s, u, nil, "Class")
	}
	link(t, s, "mammal", "SUBCLASS_OF", "animal")
	link(t, s, "dog", "SUBCLASS_OF", "mammal")
	link(t, s, "cat", "SUBCLASS_OF", "mammal")

	q, err := query.Closure("dog", "SUBCLASS_OF", query.Out, "Class")
	assert.ElementsMatch(t, []string{"mammal", "animal"}, uris(run(t, s, q, err), query.ColNode))

	q, err = query.Closure("animal", "SUBCLASS_OF", query.In, "Class")
	assert.ElementsMatch(t, []string{"mammal", "dog", "cat"}, uris(run(t, s, q, err), query.ColNode))

	q, err = query.Closure("rock", "SUBCLASS_OF", query.In, "Class")
	assert.Empty(t, run(t, s, q, err))
}

func TestClosureTerminatesOnCycle(t *testing.T) {
	s := openStore(t)
	for _, u := range []string{"a", "b", "c"} {
		mkNode(t, s, u, nil, "Class")
	}
	link(t, s, "a", "SUBCLASS_OF", "b")
	link(t, s, "b", "SUBCLASS_OF", "c")
	link(t, s, "c", "SUBCLASS_OF", "a")

	q, err := query.Closure("a", "SUBCLASS_OF", query.Out, "Class")
	got := uris(run(t, s, q, err), query.ColNode)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got, "a sits on a cycle, so it is its own ancestor")
}

func TestRoots(t *testing.T) {
	s := openStore(t)
	for _, u := range []string{"root1", "root2", "child"} {
		mkNode(t, s, u, nil, "Class")
	}
	link(t, s, "child", "SUBCLASS_OF", "root1")

	q, err := query.Roots("SUBCLASS_OF", "Class")
	assert.ElementsMatch(t, []string{"root1", "root2"}, uris(run(t, s, q, err), query.ColNode))
}

func TestNeighbors(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "c1", nil, "Class")
	mkNode(t, s, "c2", nil, "Class")
	mkNode(t, s, "o1", nil, "Object")
	mkNode(t, s, "o2", nil, "Object")
	link(t, s, "o1", "TYPE_OF", "c1")
	link(t, s, "o2", "TYPE_OF", "c2")

	q, err := query.Neighbors([]string{"c1", "c2"}, "TYPE_OF", query.In, []string{"Class"}, []string{"Object"})
	rows := run(t, s, q, err)
	require.Len(t, rows, 2)
	via := map[string]string{}
	for _, r := range rows {
		n, _ := r.Node(query.ColNode)
		via[n.Props["uri"].(string)] = r.String(query.ColVia)
	}
	assert.Equal(t, map[string]string{"o1": "c1", "o2": "c2"}, via)

	q, err = query.Neighbors([]string{"o1"}, "TYPE_OF", query.Out, []string{"Object"}, []string{"Class"})
	assert.Equal(t, []string{"c1"}, uris(run(t, s, q, err), query.ColNode))

	q, err = query.Neighbors(nil, "TYPE_OF", query.Out, []string{"Object"}, []string{"Class"})
	assert.Empty(t, run(t, s, q, err))
}

func TestAttachedBothOrientationsWithRange(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "person", nil, "Class")
	mkNode(t, s, "org", nil, "Class")
	mkNode(t, s, "name", map[string]any{"title": "name"}, "DatatypeProperty")
	mkNode(t, s, "legacy", map[string]any{"title": "legacy"}, "DatatypeProperty")
	mkNode(t, s, "owner", map[string]any{"title": "owner"}, "ObjectProperty")
	link(t, s, "name", "DOMAIN", "person")
	link(t, s, "person", "DOMAIN", "legacy") // reversed orientation
	link(t, s, "owner", "DOMAIN", "person")
	link(t, s, "owner", "RANGE", "org")

	q, err := query.Attached([]string{"person"}, "DatatypeProperty", "DOMAIN", "", "Class")
	rows := run(t, s, q, err)
	assert.ElementsMatch(t, []string{"name", "legacy"}, uris(rows, query.ColProperty))
	assert.Equal(t, []string{"person", "person"}, uris(rows, query.ColDomain))

	q, err = query.Attached([]string{"person"}, "ObjectProperty", "DOMAIN", "RANGE", "Class")
	rows = run(t, s, q, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"owner"}, uris(rows, query.ColProperty))
	assert.Equal(t, []string{"org"}, uris(rows, query.ColRange))
}

func TestAttachedWithoutRangeReportsNullColumn(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "c", nil, "Class")
	mkNode(t, s, "op", nil, "ObjectProperty")
	link(t, s, "op", "DOMAIN", "c")

	q, err := query.Attached([]string{"c"}, "ObjectProperty", "DOMAIN", "RANGE", "Class")
	rows := run(t, s, q, err)
	require.Len(t, rows, 1)
	assert.Equal(t, graphstore.Scalar{}, rows[0][query.ColRange])
}

func TestClearProperty(t *testing.T) {
	s := openStore(t)
	mkNode(t, s, "c", nil, "Class")
	mkNode(t, s, "o1", map[string]any{"age": 1, "name": "x"}, "Object")
	mkNode(t, s, "o2", map[string]any{"name": "y"}, "Object")
	mkNode(t, s, "o3", map[string]any{"age": 3}, "Object")
	link(t, s, "o1", "TYPE_OF", "c")
	link(t, s, "o2", "TYPE_OF", "c")

	q, err := query.ClearProperty([]string{"c"}, "age", "TYPE_OF", []string{"Class"}, []string{"Object"})
	assert.Equal(t, 2, graphstore.SumCount(run(t, s, q, err)))

	q, err = query.MatchNode("o1")
	n, _ := run(t, s, q, err)[0].Node(query.ColNode)
	assert.NotContains(t, n.Props, "age")
	assert.Equal(t, "x", n.Props["name"])

	q, err = query.MatchNode("o3")
	n, _ = run(t, s, q, err)[0].Node(query.ColNode)
	assert.Equal(t, int64(3), n.Props["age"], "objects of other classes are untouched")
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func TestInTxRollsBackOnError(t *testing.T) {
	s := openStore(t)
	boom := ontoerr.New(ontoerr.CodeServerInternalFailure, "boom")

	err := s.InTx(context.Background(), func(r graphstore.Runner) error {
		mkNode(t, r, "temp", nil, "Class")
		return boom
	})
	require.ErrorIs(t, err, boom)

	q, qerr := query.MatchNode("temp")
	assert.Empty(t, run(t, s, q, qerr))
}

func TestInTxCommits(t *testing.T) {
	s := openStore(t)
	err := s.InTx(context.Background(), func(r graphstore.Runner) error {
		mkNode(t, r, "x", nil, "Class")
		mkNode(t, r, "y", nil, "Class")
		link(t, r, "x", "SUBCLASS_OF", "y")
		return nil
	})
	require.NoError(t, err)

	q, qerr := query.Closure("x", "SUBCLASS_OF", query.Out, "Class")
	assert.Equal(t, []string{"y"}, uris(run(t, s, q, qerr), query.ColNode))
}
