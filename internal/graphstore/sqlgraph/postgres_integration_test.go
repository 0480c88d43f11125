// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build integration

package sqlgraph_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/graphstore/sqlgraph"
	"github.com/sigil-dev/ontograph/internal/query"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "onto",
			"POSTGRES_PASSWORD": "onto",
			"POSTGRES_DB":       "onto",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://onto:onto@%s:%s/onto?sslmode=disable", host, port.Port())
}

func TestPostgresBackendRoundTrip(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	s, err := graphstore.Open(ctx, &graphstore.StorageConfig{Backend: "postgres", PostgresDSN: dsn}, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, "postgres", s.Backend())

	mkNode(t, s, "animal", map[string]any{"title": "Animal"}, "Class")
	mkNode(t, s, "dog", map[string]any{"title": "Dog"}, "Class")
	require.Equal(t, 1, link(t, s, "dog", "SUBCLASS_OF", "animal"))

	q, err := query.Closure("animal", "SUBCLASS_OF", query.In, "Class")
	assert.Equal(t, []string{"dog"}, uris(run(t, s, q, err), query.ColNode))

	tx, ok := s.(graphstore.Transactor)
	require.True(t, ok)
	err = tx.InTx(ctx, func(r graphstore.Runner) error {
		q, err := query.DeleteNodes([]string{"dog", "animal"}, true, "Class")
		if err != nil {
			return err
		}
		_, err = r.Run(ctx, q)
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, run(t, s, query.AllNodes(), nil))
}

func TestOpenPostgresUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := sqlgraph.OpenPostgres(ctx, "postgres://nobody:x@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	require.Error(t, err)
}
