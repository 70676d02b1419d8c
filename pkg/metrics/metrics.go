// Package metrics exposes the Prometheus registry used by gh-harvest.
// Collectors are defined in their own packages (client, cache, ratelimit,
// search, pagination) and registered through promauto on import.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry all gh_* collectors live in.
var Registry = prometheus.DefaultRegisterer

// Path is where the handler is mounted.
const Path = "/metrics"

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve listens on addr and serves Path until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - gh_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status ("network_error" on transport failure)
//   - gh_request_duration_seconds{endpoint} (Histogram): request duration
//
// Rate Limit Metrics (pkg/ratelimit):
//   - gh_rate_limit_remaining (Gauge): remaining requests reported by the last probe
//   - gh_rate_limit_probes_total (Counter): /rate_limit requests
//   - gh_rate_limit_waits_total{reason} (Counter): reset sleeps, reason "preventive" or "forbidden"
//   - gh_rate_limit_wait_seconds{reason} (Histogram): reset sleep duration
//
// Search Metrics (pkg/search):
//   - gh_forbidden_retries_total (Counter): pages re-requested after a 403
//   - gh_forbidden_retries_exhausted_total (Counter): pages abandoned at the retry cap
//
// Pagination Metrics (pkg/pagination):
//   - gh_pages_fetched_total (Counter): pages fetched, including the final empty one
//   - gh_items_collected_total (Counter): items appended to result sets
//
// Cache Metrics (pkg/cache):
//   - gh_cache_hits_total (Counter)
//   - gh_cache_misses_total (Counter)
//   - gh_cache_not_modified_total (Counter): 304 answers served from cache
//   - gh_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Share of time spent waiting for quota
//   sum(rate(gh_rate_limit_wait_seconds_sum[1h]))
//
//   # 403 rate
//   rate(gh_requests_total{status="403"}[5m]) / rate(gh_requests_total[5m])
//
//   # P95 search latency
//   histogram_quantile(0.95, rate(gh_request_duration_seconds_bucket{endpoint="/search/repositories"}[5m]))
