// Copyright (c) 2026 Wasteland Blues. All rights reserved.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wastelandblues/atlas/internal/platform/metrics"
)

// Metrics records Prometheus metrics for every finished request.
//
// It must run inside the chi router so the matched route pattern (not the raw
// URL path) is available as the label — otherwise /api/locations/{id} would
// explode the label cardinality with one series per location.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()
			wrappedWriter := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(wrappedWriter, request)

			route := chi.RouteContext(request.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}

			metrics.RecordHTTPRequest(
				request.Method,
				route,
				strconv.Itoa(wrappedWriter.status),
				time.Since(startTime),
			)
		})
	}
}
