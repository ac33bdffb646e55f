/*
Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var httpReqs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proposal_service_http_requests_total",
		Help: "HTTP requests served, partitioned by status code, method and route.",
	},
	[]string{"code", "method", "route"},
)

var httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "proposal_service_http_response_time_seconds",
	Help:    "Duration of HTTP requests, partitioned by route.",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
}, []string{"route"})

// routeLabel prefers the chi route pattern over the raw path so that
// proposal ids do not explode the label cardinality. Unrouted requests
// share one label.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routeLabel(r)
		httpReqs.WithLabelValues(strconv.Itoa(status), r.Method, route).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func init() {
	prometheus.MustRegister(httpReqs, httpDuration)
}
