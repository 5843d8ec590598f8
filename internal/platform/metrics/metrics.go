// Copyright (c) 2026 Wasteland Blues. All rights reserved.

// Package metrics provides Prometheus instrumentation for the Atlas API.
//
// It covers the three signals operations actually watches for this service:
// HTTP traffic (latency and status mix per route), publish activity, and the
// public feed cache efficiency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// # HTTP Metrics

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// # Domain Metrics

	publishTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_map_publish_total",
			Help: "Total number of successful publish-all operations",
		},
	)

	mapCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_map_cache_hits_total",
			Help: "Public map feed responses served from the cache",
		},
	)

	mapCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_map_cache_misses_total",
			Help: "Public map feed responses assembled from the store",
		},
	)
)

// RecordHTTPRequest records a finished HTTP request.
//
// The route label must be the chi route pattern (e.g. "/api/locations/{id}"),
// never the raw URL path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPublish counts a successful publish-all operation.
func RecordPublish() {
	publishTotal.Inc()
}

// RecordCacheHit counts a public feed response served from the cache.
func RecordCacheHit() {
	mapCacheHits.Inc()
}

// RecordCacheMiss counts a public feed response assembled from the store.
func RecordCacheMiss() {
	mapCacheMisses.Inc()
}
