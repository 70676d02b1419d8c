package ratelimit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Endpoint is the status path probed before each page.
const Endpoint = "/rate_limit"

// Prometheus metrics for rate limit tracking.
var (
	ghRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gh_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	ghRateLimitProbesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_rate_limit_probes_total",
		Help: "Total number of rate limit status requests",
	})
)

// Getter issues GET requests. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error)
}

// Probe queries the rate limit status endpoint.
type Probe struct {
	getter Getter
	now    func() time.Time
	logger zerolog.Logger
}

// NewProbe creates a probe issuing requests through getter.
func NewProbe(getter Getter, logger zerolog.Logger) *Probe {
	return &Probe{
		getter: getter,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source used to compute ResetInSeconds.
func (p *Probe) WithClock(now func() time.Time) *Probe {
	p.now = now
	return p
}

// Check issues one status request and returns the parsed quota. Only the
// response headers are consulted, whatever the status code. Transport errors
// are returned unchanged; the probe never retries.
func (p *Probe) Check(ctx context.Context) (Status, error) {
	resp, err := p.getter.Get(ctx, Endpoint, nil)
	if err != nil {
		return Status{}, fmt.Errorf("rate limit probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ghRateLimitProbesTotal.Inc()

	status := ParseHeaders(resp.Header, p.now())
	ghRateLimitRemaining.Set(float64(status.Remaining))

	p.logger.Debug().
		Int("remaining", status.Remaining).
		Int64("reset_in", status.ResetInSeconds).
		Int("status", resp.StatusCode).
		Msg("Rate limit probed")

	return status, nil
}

// Wait reasons recorded by RecordWait.
const (
	WaitPreventive = "preventive"
	WaitForbidden  = "forbidden"
)

var (
	ghRateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_rate_limit_waits_total",
		Help: "Total number of sleeps for a rate limit reset by reason",
	}, []string{"reason"})

	ghRateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gh_rate_limit_wait_seconds",
		Help:    "Duration of rate limit reset sleeps by reason",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
	}, []string{"reason"})
)

// RecordWait counts one reset sleep of duration d.
func RecordWait(reason string, d time.Duration) {
	ghRateLimitWaitsTotal.WithLabelValues(reason).Inc()
	ghRateLimitWaitSeconds.WithLabelValues(reason).Observe(d.Seconds())
}
