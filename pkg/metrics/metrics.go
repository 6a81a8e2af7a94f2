// Package metrics exposes the Prometheus registry and the small HTTP surface
// (health, readiness, metrics) served in watch mode. The metrics themselves
// are defined in their respective packages (vkapi, batch, pipeline, cache,
// ratelimit) to avoid circular dependencies.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// ReadyFunc reports whether the service's dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// NewServer returns an HTTP server on addr exposing /health, /ready and /metrics.
// A nil ready always reports ready.
func NewServer(addr string, ready ReadyFunc) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/ready", ReadyHandler(ready))
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// ReadyHandler reports readiness using ready.
func ReadyHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// Metrics Documentation
//
// Platform Request Metrics (pkg/vkapi):
//   - vk_requests_total{method, status} (Counter): Requests by API method and result
//   - vk_request_duration_seconds{method} (Histogram): Request duration by API method
//   - vk_errors_total{method, class} (Counter): Errors by class (access_denied, transient, unexpected)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - vk_rate_gate_wait_seconds (Histogram): Time spent waiting on the request gate
//   - vk_quota_blocks_total{method} (Counter): Methods blocked after a quota error
//   - vk_quota_skipped_requests_total{method} (Counter): Calls skipped while blocked
//
// Batch Metrics (pkg/batch):
//   - vk_batch_groups_total{status} (Counter): Bulk lookup groups by status (ok, failed)
//
// Pipeline Metrics (pkg/pipeline):
//   - vk_lookup_outcomes_total{lookup, outcome} (Counter): Auxiliary lookup outcomes
//   - vk_entries_total{state} (Counter): Entries by state (resolved, unresolved, emitted)
//   - vk_persist_failures_total (Counter): Records whose persistence failed
//   - vk_run_duration_seconds (Histogram): Duration of complete runs
//
// Cache Metrics (pkg/cache):
//   - vk_snapshot_cache_hits_total (Counter): Snapshot cache hits
//   - vk_snapshot_cache_misses_total (Counter): Snapshot cache misses
//   - vk_snapshot_cache_writes_total (Counter): Records written
//   - vk_snapshot_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Share of hidden follower counts
//   sum(rate(vk_lookup_outcomes_total{lookup="followers",outcome="access_denied"}[1h])) /
//   sum(rate(vk_lookup_outcomes_total{lookup="followers"}[1h]))
//
//   # Transient failure rate per lookup
//   sum by (lookup) (rate(vk_lookup_outcomes_total{outcome="transient"}[1h]))
//
//   # Unresolved entries per run
//   increase(vk_entries_total{state="unresolved"}[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(vk_request_duration_seconds_bucket[5m]))
