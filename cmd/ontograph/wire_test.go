// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/ontograph/internal/config"
	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestWireApp_SQLite(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := testConfig(t, nil)

	app, err := WireApp(context.Background(), cfg, dataDir, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	_, err = os.Stat(filepath.Join(dataDir, "ontology.db"))
	require.NoError(t, err, "sqlite database should be created under the data dir")
	assert.Equal(t, "sqlite", app.Store.Backend())
	require.NotNil(t, app.Metrics)

	srv, err := app.NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/v1/classes", "application/json",
		strings.NewReader(`{"title":"Animal","uri":"animal"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWireApp_UnsupportedBackend(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.Storage.Backend = "mongo"

	_, err := WireApp(context.Background(), cfg, t.TempDir(), false)
	require.Error(t, err)
	assert.Equal(t, ontoerr.CodeStoreBackendUnsupported, ontoerr.CodeOf(err))
}

func TestWireApp_PublishesEvents(t *testing.T) {
	ns, err := natsserver.NewServer(&natsserver.Options{Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "embedded nats server not ready")
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	msgs, err := sub.SubscribeSync("zoo.>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	cfg := testConfig(t, map[string]any{
		"events.nats_url":       ns.ClientURL(),
		"events.subject_prefix": "zoo",
	})
	app, err := WireApp(context.Background(), cfg, t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	_, err = app.Engine.CreateClass(context.Background(), ontology.ClassInput{Title: "Animal", URI: "animal"})
	require.NoError(t, err)

	msg, err := msgs.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "zoo.class.created", msg.Subject)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "animal", body["uri"])
}

func TestWireApp_BadNATSURL(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.Events.NATSURL = "nats://127.0.0.1:1"

	_, err := WireApp(context.Background(), cfg, t.TempDir(), false)
	require.Error(t, err)
	assert.Equal(t, ontoerr.CodeEventsConnectFailure, ontoerr.CodeOf(err))
}
