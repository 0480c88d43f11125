// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package snapshot_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/graphstore/sqlgraph"
	"github.com/sigil-dev/ontograph/internal/ontology"
	"github.com/sigil-dev/ontograph/internal/query"
	"github.com/sigil-dev/ontograph/internal/snapshot"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func newEngine(t *testing.T) *ontology.Engine {
	t.Helper()
	e, _ := newEngineWithStore(t)
	return e
}

func newEngineWithStore(t *testing.T) (*ontology.Engine, *sqlgraph.Store) {
	t.Helper()
	store, err := sqlgraph.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	e, err := ontology.New(ontology.Config{Store: store})
	require.NoError(t, err)
	return e, store
}

func seed(t *testing.T, e *ontology.Engine) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []ontology.ClassInput{
		{URI: "animal", Title: "Animal"},
		{URI: "dog", Title: "Dog", Description: "good boy", ParentURI: "animal"},
		{URI: "person", Title: "Person"},
	} {
		_, err := e.CreateClass(ctx, c)
		require.NoError(t, err)
	}
	_, err := e.UpdateClass(ctx, "person", ontology.ClassPatch{Properties: map[string]any{"icon": "user"}})
	require.NoError(t, err)
	_, err = e.AddClassAttribute(ctx, ontology.AttributeInput{ClassURI: "animal", Title: "name", URI: "dp-name"})
	require.NoError(t, err)
	_, err = e.AddClassAttribute(ctx, ontology.AttributeInput{ClassURI: "dog", Title: "age", URI: "dp-age"})
	require.NoError(t, err)
	_, err = e.AddClassObjectAttribute(ctx, ontology.ObjectAttributeInput{
		ClassURI: "dog", Title: "owner", RangeURI: "person", URI: "op-owner",
	})
	require.NoError(t, err)

	_, err = e.CreateObject(ctx, ontology.ObjectInput{ClassURI: "person", Properties: map[string]any{"uri": "alice", "title": "Alice"}})
	require.NoError(t, err)
	_, err = e.CreateObject(ctx, ontology.ObjectInput{
		ClassURI:   "dog",
		Properties: map[string]any{"uri": "rex", "name": "Rex", "age": 3},
		Relations:  []ontology.Relation{{TargetURI: "alice", RelURI: "op-owner"}},
	})
	require.NoError(t, err)
}

func TestExport(t *testing.T) {
	e := newEngine(t)
	seed(t, e)

	doc, err := snapshot.Export(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, snapshot.CurrentVersion, doc.Version)

	var order []string
	for _, c := range doc.Classes {
		order = append(order, c.URI)
	}
	assert.Equal(t, []string{"animal", "person", "dog"}, order)

	dog := doc.Classes[2]
	assert.Equal(t, []string{"animal"}, dog.Parents)
	assert.Equal(t, "good boy", dog.Description)
	assert.Equal(t, []snapshot.Attribute{{URI: "dp-age", Title: "age"}}, dog.Attributes)
	assert.Equal(t, []snapshot.ObjectAttribute{{URI: "op-owner", Title: "owner", Range: "person"}}, dog.ObjectAttributes)
	assert.Equal(t, map[string]any{"icon": "user"}, doc.Classes[1].Properties)

	require.Len(t, doc.Objects, 2)
	assert.Equal(t, "alice", doc.Objects[0].URI)
	assert.Equal(t, "Alice", doc.Objects[0].Title)
	rex := doc.Objects[1]
	assert.Equal(t, "dog", rex.Class)
	assert.Equal(t, map[string]any{"name": "Rex", "age": int64(3)}, rex.Properties)
	assert.Equal(t, []snapshot.Relation{{Property: "op-owner", Target: "alice"}}, rex.Relations)
}

func TestExportKeepsClassSideDomainsAndEveryClass(t *testing.T) {
	ctx := context.Background()
	src, store := newEngineWithStore(t)
	for _, uri := range []string{"animal", "pet"} {
		_, err := src.CreateClass(ctx, ontology.ClassInput{URI: uri, Title: uri})
		require.NoError(t, err)
	}
	q, err := query.CreateNode(entity.EncodeParams(entity.Node{URI: "dp-tag", Title: "tag"}), entity.LabelDatatypeProperty)
	require.NoError(t, err)
	_, err = store.Run(ctx, q)
	require.NoError(t, err)
	q, err = query.CreateArc(query.Ref{URI: "pet"}, entity.RelDomain, query.Ref{URI: "dp-tag"}, nil)
	require.NoError(t, err)
	_, err = store.Run(ctx, q)
	require.NoError(t, err)

	rex, err := src.CreateObject(ctx, ontology.ObjectInput{ClassURI: "animal", Properties: map[string]any{"uri": "rex"}})
	require.NoError(t, err)
	require.NotNil(t, rex)
	ok, err := src.AddObjectClass(ctx, rex.URI, "pet")
	require.NoError(t, err)
	require.True(t, ok)

	check := func(t *testing.T, doc *snapshot.Document) {
		t.Helper()
		require.Len(t, doc.Classes, 2)
		pet := doc.Classes[1]
		assert.Equal(t, "pet", pet.URI)
		assert.Equal(t, []snapshot.Attribute{{URI: "dp-tag", Title: "tag"}}, pet.Attributes)
		require.Len(t, doc.Objects, 1)
		assert.Equal(t, "animal", doc.Objects[0].Class)
		assert.Equal(t, []string{"pet"}, doc.Objects[0].AlsoClasses)
	}

	doc, err := snapshot.Export(ctx, src)
	require.NoError(t, err)
	check(t, doc)

	data, err := snapshot.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "also_classes:")
	parsed, err := snapshot.Parse(data)
	require.NoError(t, err)

	dst := newEngine(t)
	stats, err := snapshot.Import(ctx, dst, parsed)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ImportStats{Classes: 2, Attributes: 1, Objects: 1, ObjectClasses: 1}, stats)

	again, err := snapshot.Export(ctx, dst)
	require.NoError(t, err)
	check(t, again)
}

func TestRoundTripThroughYAML(t *testing.T) {
	ctx := context.Background()
	src := newEngine(t)
	seed(t, src)

	doc, err := snapshot.Export(ctx, src)
	require.NoError(t, err)
	data, err := snapshot.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "object_attributes:")

	parsed, err := snapshot.Parse(data)
	require.NoError(t, err)

	dst := newEngine(t)
	stats, err := snapshot.Import(ctx, dst, parsed)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ImportStats{
		Classes: 3, Parents: 1, Attributes: 2, ObjectAttributes: 1, Objects: 2, Relations: 1,
	}, stats)

	again, err := snapshot.Export(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestImportTwiceSkipsExisting(t *testing.T) {
	ctx := context.Background()
	src := newEngine(t)
	seed(t, src)
	doc, err := snapshot.Export(ctx, src)
	require.NoError(t, err)

	dst := newEngine(t)
	_, err = snapshot.Import(ctx, dst, doc)
	require.NoError(t, err)
	stats, err := snapshot.Import(ctx, dst, doc)
	require.NoError(t, err)
	assert.Zero(t, stats.Classes)
	assert.Zero(t, stats.Objects)
	assert.Positive(t, stats.Skipped)
}

func TestImportSkipsCyclicParents(t *testing.T) {
	e := newEngine(t)
	doc := &snapshot.Document{Classes: []snapshot.Class{
		{URI: "a", Parents: []string{"b"}},
		{URI: "b", Parents: []string{"a"}},
	}}
	stats, err := snapshot.Import(context.Background(), e, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Classes)
	assert.Equal(t, 1, stats.Parents)
	assert.Equal(t, 1, stats.Skipped)
}

func TestImportObjectOfUnknownClassIsSkipped(t *testing.T) {
	e := newEngine(t)
	doc := &snapshot.Document{Objects: []snapshot.Object{{URI: "x", Class: "ghost"}}}
	stats, err := snapshot.Import(context.Background(), e, doc)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ImportStats{Skipped: 1}, stats)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	_, err := snapshot.Parse([]byte("classes: [\n"))
	assert.Equal(t, ontoerr.CodeSnapshotParseInvalidFormat, ontoerr.CodeOf(err))

	_, err = snapshot.Parse([]byte("version: 7\n"))
	assert.Error(t, err)

	doc := &snapshot.Document{
		Classes: []snapshot.Class{
			{URI: "a", ObjectAttributes: []snapshot.ObjectAttribute{{Title: "rel"}}},
			{URI: "a", Attributes: []snapshot.Attribute{{}}},
			{},
		},
		Objects: []snapshot.Object{{URI: "o", Relations: []snapshot.Relation{{Target: "a"}}}},
	}
	errs := doc.Validate()
	assert.Len(t, errs, 6)
	for _, err := range errs {
		assert.True(t, ontoerr.IsInvalidInput(err))
	}
}
