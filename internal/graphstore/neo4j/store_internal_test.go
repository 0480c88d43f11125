// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package neo4j

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

type call struct {
	text   string
	params map[string]any
	mode   neo4j.AccessMode
}

type fakeDriver struct {
	calls      []call
	records    []*neo4j.Record
	runErr     error
	connectErr error
	closed     bool
	lastMode   neo4j.AccessMode
}

func (d *fakeDriver) NewSession(_ context.Context, cfg neo4j.SessionConfig) neo4j.SessionWithContext {
	d.lastMode = cfg.AccessMode
	return &fakeSession{driver: d}
}

func (d *fakeDriver) VerifyConnectivity(context.Context) error { return d.connectErr }

func (d *fakeDriver) Close(context.Context) error {
	d.closed = true
	return nil
}

// fakeSession embeds the interface so only the methods the store calls need
// implementing.
type fakeSession struct {
	neo4j.SessionWithContext
	driver *fakeDriver
}

func (s *fakeSession) Run(_ context.Context, text string, params map[string]any, _ ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error) {
	s.driver.calls = append(s.driver.calls, call{text: text, params: params, mode: s.driver.lastMode})
	if s.driver.runErr != nil {
		return nil, s.driver.runErr
	}
	return &fakeResult{records: s.driver.records}, nil
}

func (s *fakeSession) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, _ ...func(*neo4j.TransactionConfig)) (any, error) {
	return work(&fakeTx{session: s})
}

func (s *fakeSession) Close(context.Context) error { return nil }

type fakeTx struct {
	neo4j.ManagedTransaction
	session *fakeSession
}

func (t *fakeTx) Run(ctx context.Context, text string, params map[string]any) (neo4j.ResultWithContext, error) {
	return t.session.Run(ctx, text, params)
}

type fakeResult struct {
	neo4j.ResultWithContext
	records []*neo4j.Record
}

func (r *fakeResult) Collect(context.Context) ([]*neo4j.Record, error) { return r.records, nil }

func newFakeStore(t *testing.T, d *fakeDriver) *Store {
	t.Helper()
	s, err := newStore(context.Background(), d, "neo4j")
	require.NoError(t, err)
	d.calls = nil
	return s
}

func TestNewStoreEnsuresSchema(t *testing.T) {
	d := &fakeDriver{}
	_, err := newStore(context.Background(), d, "")
	require.NoError(t, err)
	require.Len(t, d.calls, len(schemaStatements))
	assert.Contains(t, d.calls[0].text, "SET n:`Entity`")
	assert.Contains(t, d.calls[1].text, "FOR (n:`Entity`) REQUIRE n.uri IS UNIQUE")
	for _, c := range d.calls {
		assert.Equal(t, neo4j.AccessModeWrite, c.mode)
	}
}

func TestNewStoreUnreachable(t *testing.T) {
	d := &fakeDriver{connectErr: context.DeadlineExceeded}
	_, err := newStore(context.Background(), d, "")
	assert.True(t, ontoerr.IsUnavailable(err))
}

func TestNewStoreSchemaFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ontoerr.Code
	}{
		{"generic", errors.New("not allowed"), ontoerr.CodeStoreDatabaseFailure},
		{"stored duplicates", &neo4j.Neo4jError{Code: constraintFailed, Msg: "duplicate uri"}, ontoerr.CodeStoreConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDriver{runErr: tt.err}
			s, err := newStore(context.Background(), d, "")
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Equal(t, tt.want, ontoerr.CodeOf(err))
		})
	}
}

func TestRunPassesCypherThrough(t *testing.T) {
	d := &fakeDriver{records: []*neo4j.Record{{
		Keys: []string{"n"},
		Values: []any{neo4j.Node{
			ElementId: "4:abc:1",
			Labels:    []string{"Class"},
			Props:     map[string]any{"uri": "animal", "title": "Animal"},
		}},
	}}}
	s := newFakeStore(t, d)

	q, err := query.MatchNode("animal", "Class")
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, d.calls, 1)
	assert.Equal(t, q.Text, d.calls[0].text)
	assert.Equal(t, "animal", d.calls[0].params["uri"])
	assert.Equal(t, neo4j.AccessModeRead, d.calls[0].mode)

	require.Len(t, rows, 1)
	n, ok := rows[0].Node(query.ColNode)
	require.True(t, ok)
	assert.Equal(t, "4:abc:1", n.ID)
	assert.Equal(t, "animal", n.Props["uri"])
}

func TestRunWritesUseWriteMode(t *testing.T) {
	d := &fakeDriver{}
	s := newFakeStore(t, d)

	q, err := query.CreateNode(map[string]any{"uri": "x"}, "Class")
	require.NoError(t, err)
	_, err = s.Run(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, neo4j.AccessModeWrite, d.calls[0].mode)
	assert.Contains(t, d.calls[0].text, "CREATE (n:`Class`:`Entity`)")
	assert.Equal(t, "x", d.calls[0].params["props"].(map[string]any)["uri"])
}

func TestCreateArcMatchesEntityEndpoints(t *testing.T) {
	d := &fakeDriver{}
	s := newFakeStore(t, d)

	q, err := query.CreateArc(query.Ref{URI: "rex"}, "owner", query.Ref{URI: "alice", Labels: []string{"Object"}}, nil)
	require.NoError(t, err)
	err = s.InTx(context.Background(), func(r graphstore.Runner) error {
		_, err := r.Run(context.Background(), q)
		return err
	})
	require.NoError(t, err)

	require.Len(t, d.calls, 1)
	assert.Contains(t, d.calls[0].text, "MATCH (a:`Entity` {uri: $from})")
	assert.Contains(t, d.calls[0].text, "MATCH (b:`Object`:`Entity` {uri: $to})")
	assert.Equal(t, "rex", d.calls[0].params["from"])
}

func TestRunErrorCarriesKind(t *testing.T) {
	d := &fakeDriver{}
	s := newFakeStore(t, d)
	d.runErr = &neo4j.Neo4jError{Code: constraintFailed, Msg: "already exists"}

	q, err := query.CreateNode(map[string]any{"uri": "x"}, "Class")
	require.NoError(t, err)
	_, err = s.Run(context.Background(), q)
	assert.True(t, ontoerr.IsConflict(err))
	assert.Equal(t, string(query.KindCreateNode), ontoerr.FieldsOf(err)["query_kind"])
}

func TestInTxRunsThroughManagedTransaction(t *testing.T) {
	d := &fakeDriver{}
	s := newFakeStore(t, d)

	q := query.AllNodes()
	err := s.InTx(context.Background(), func(r graphstore.Runner) error {
		_, err := r.Run(context.Background(), q)
		return err
	})
	require.NoError(t, err)
	require.Len(t, d.calls, 1)
	assert.Equal(t, neo4j.AccessModeWrite, d.calls[0].mode)

	boom := ontoerr.New(ontoerr.CodeOntologyInputInvalid, "boom")
	err = s.InTx(context.Background(), func(graphstore.Runner) error { return boom })
	assert.Equal(t, ontoerr.CodeOntologyInputInvalid, ontoerr.CodeOf(err))
}

func TestCloseReleasesDriver(t *testing.T) {
	d := &fakeDriver{}
	s := newFakeStore(t, d)
	require.NoError(t, s.Close())
	assert.True(t, d.closed)
	assert.Equal(t, "neo4j", s.Backend())
}

func TestToValue(t *testing.T) {
	rel := neo4j.Relationship{
		ElementId:      "5:abc:7",
		StartElementId: "4:abc:1",
		EndElementId:   "4:abc:2",
		Type:           "SUBCLASS_OF",
		Props:          map[string]any{"w": int64(1)},
	}

	assert.Equal(t, graphstore.RawEdge{
		ID: "5:abc:7", Type: "SUBCLASS_OF", StartID: "4:abc:1", EndID: "4:abc:2",
		Props: map[string]any{"w": int64(1)},
	}, toValue(rel))
	assert.Equal(t, graphstore.Scalar{V: int64(3)}, toValue(int64(3)))
	assert.Equal(t, graphstore.Scalar{}, toValue(nil))

	node := &neo4j.Node{ElementId: "4:abc:9", Labels: []string{"Object", "Entity"}}
	assert.Equal(t, graphstore.RawNode{ID: "4:abc:9", Labels: []string{"Object"}}, toValue(node))
	assert.Equal(t, []string{"Object", "Entity"}, node.Labels, "driver labels are not mutated")
}

func TestToRowsToleratesShortRecords(t *testing.T) {
	rows := toRows([]*neo4j.Record{{Keys: []string{"a", "b"}, Values: []any{"x"}}})
	require.Len(t, rows, 1)
	assert.Equal(t, "x", rows[0].String("a"))
	_, present := rows[0]["b"]
	assert.False(t, present)
}

func TestReadOnlyKinds(t *testing.T) {
	assert.True(t, readOnly(query.KindClosure))
	assert.True(t, readOnly(query.KindArcs))
	assert.False(t, readOnly(query.KindClearProperty))
	assert.False(t, readOnly(query.KindDeleteNodes))
}

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.DiscardHandler))
	m.Run()
}
