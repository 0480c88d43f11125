// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sigil-dev/ontograph/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveQueryCountsAndErrors(t *testing.T) {
	reg := metrics.New()

	reg.ObserveQuery("sqlite", "match_node", 3*time.Millisecond, "", false)
	reg.ObserveQuery("sqlite", "match_node", time.Millisecond, "store.database.failure", true)
	reg.ObserveQuery("sqlite", "closure", time.Millisecond, "", true)

	assert.InDelta(t, 2, testutil.ToFloat64(reg.StoreQueries.WithLabelValues("sqlite", "match_node")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(reg.StoreErrors.WithLabelValues("sqlite", "match_node", "store.database.failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(reg.StoreErrors.WithLabelValues("sqlite", "closure", "unknown")), 0)
}

func TestNilRegistryIsSafe(t *testing.T) {
	var reg *metrics.Registry
	assert.NotPanics(t, func() {
		reg.ObserveQuery("neo4j", "closure", time.Second, "", false)
		reg.RecordMutation("class", "create")
		reg.RecordPublish("ok")
		reg.RecordDropped(3)
		reg.RecordHTTP(http.MethodGet, http.StatusOK)
		reg.RecordRateLimited()
	})
}

func TestRecordDroppedIgnoresNonPositive(t *testing.T) {
	reg := metrics.New()
	reg.RecordDropped(0)
	reg.RecordDropped(-2)
	reg.RecordDropped(2)
	assert.InDelta(t, 2, testutil.ToFloat64(reg.ValidationDropped), 0)
}

func TestHandlerExposesFamilies(t *testing.T) {
	reg := metrics.New()
	reg.RecordMutation("object", "create")

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ontograph_engine_mutations_total")
	assert.Contains(t, string(body), "go_goroutines")
}
