// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package metrics owns the prometheus registry exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ontograph"

// Registry bundles the process-wide collectors.
type Registry struct {
	reg *prometheus.Registry

	StoreQueries      *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
	StoreDuration     *prometheus.HistogramVec
	EngineMutations   *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPRateLimited   prometheus.Counter
	ValidationDropped prometheus.Counter
}

// New creates a registry with the runtime collectors and the ontograph
// metric families registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		StoreQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "queries_total",
			Help:      "Graph statements executed, by backend and query kind.",
		}, []string{"backend", "kind"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Graph statements that returned an error, by backend, kind and error code.",
		}, []string{"backend", "kind", "code"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Graph statement latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "kind"}),
		EngineMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mutations_total",
			Help:      "Successful ontology mutations, by entity kind and operation.",
		}, []string{"kind", "op"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Change events handed to the publisher, by status.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "status"}),
		HTTPRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "HTTP requests rejected by the per-IP limiter.",
		}),
		ValidationDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "validation_dropped_total",
			Help:      "Object properties dropped because they are outside the class signature.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.StoreQueries,
		r.StoreErrors,
		r.StoreDuration,
		r.EngineMutations,
		r.EventsPublished,
		r.HTTPRequests,
		r.HTTPRateLimited,
		r.ValidationDropped,
	)
	return r
}

// Prometheus exposes the underlying registry for gathering in tests.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveQuery records one executed store statement.
func (r *Registry) ObserveQuery(backend, kind string, took time.Duration, code string, failed bool) {
	if r == nil {
		return
	}
	r.StoreQueries.WithLabelValues(backend, kind).Inc()
	r.StoreDuration.WithLabelValues(backend, kind).Observe(took.Seconds())
	if failed {
		if code == "" {
			code = "unknown"
		}
		r.StoreErrors.WithLabelValues(backend, kind, code).Inc()
	}
}

// RecordMutation counts a successful engine mutation.
func (r *Registry) RecordMutation(kind, op string) {
	if r == nil {
		return
	}
	r.EngineMutations.WithLabelValues(kind, op).Inc()
}

// RecordPublish counts a change event by outcome ("ok" or "error").
func (r *Registry) RecordPublish(status string) {
	if r == nil {
		return
	}
	r.EventsPublished.WithLabelValues(status).Inc()
}

// RecordDropped counts properties removed by drop-mode validation.
func (r *Registry) RecordDropped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ValidationDropped.Add(float64(n))
}

// RecordHTTP counts one served HTTP request.
func (r *Registry) RecordHTTP(method string, status int) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, http.StatusText(status)).Inc()
}

// RecordRateLimited counts one rejected HTTP request.
func (r *Registry) RecordRateLimited() {
	if r == nil {
		return
	}
	r.HTTPRateLimited.Inc()
}
