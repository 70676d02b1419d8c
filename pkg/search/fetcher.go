package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Sternrassler/gh-harvest/pkg/client"
	"github.com/Sternrassler/gh-harvest/pkg/pagination"
	"github.com/Sternrassler/gh-harvest/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	ghForbiddenRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_forbidden_retries_total",
		Help: "Total number of search requests retried after a 403",
	})

	ghForbiddenRetriesExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_forbidden_retries_exhausted_total",
		Help: "Total number of pages abandoned after the 403 retry cap",
	})
)

// Getter issues GET requests; GetCached may answer from the response cache.
// *client.Client satisfies it.
type Getter interface {
	GetCached(ctx context.Context, endpoint string, query url.Values) (*http.Response, error)
}

// Config holds fetcher configuration.
type Config struct {
	// MaxForbiddenRetries caps retries of one page after 403 responses.
	// 0 retries forever.
	MaxForbiddenRetries int
}

// Fetcher fetches pages of the repository search. It implements
// pagination.PageFetcher.
type Fetcher struct {
	getter Getter
	limits pagination.RateLimitChecker
	sleep  pagination.SleepFunc
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher. limits is consulted after each 403.
func NewFetcher(getter Getter, limits pagination.RateLimitChecker, config Config, logger zerolog.Logger) *Fetcher {
	if config.MaxForbiddenRetries < 0 {
		config.MaxForbiddenRetries = 0
	}
	return &Fetcher{
		getter: getter,
		limits: limits,
		sleep:  pagination.Sleep,
		config: config,
		logger: logger,
	}
}

// WithSleep replaces the sleep function, letting tests observe waits.
func (f *Fetcher) WithSleep(fn pagination.SleepFunc) *Fetcher {
	f.sleep = fn
	return f
}

// FetchPage requests one page. A 403 is answered by probing the rate limit,
// sleeping until the reset and re-issuing the identical request. Any other
// status besides 200 is returned as a *client.StatusError.
func (f *Fetcher) FetchPage(ctx context.Context, page, perPage int) ([]pagination.Item, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	query := pageParams(page, perPage)

	for retries := 0; ; retries++ {
		resp, err := f.getter.GetCached(ctx, Endpoint, query)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			items, err := decodeItems(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
			if retries > 0 {
				f.logger.Info().
					Int("page", page).
					Int("retries", retries).
					Msg("Page succeeded after 403 retry")
			}
			return items, nil

		case http.StatusForbidden:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if f.config.MaxForbiddenRetries > 0 && retries >= f.config.MaxForbiddenRetries {
				ghForbiddenRetriesExhaustedTotal.Inc()
				f.logger.Error().
					Int("page", page).
					Int("max_retries", f.config.MaxForbiddenRetries).
					Msg("403 retry attempts exhausted")
				return nil, fmt.Errorf("page %d: %w after %d retries: status 403", page, client.ErrRetryExhausted, retries)
			}

			if err := f.waitForReset(ctx, page, retries+1); err != nil {
				return nil, err
			}
			ghForbiddenRetriesTotal.Inc()

		default:
			serr := client.NewStatusError(Endpoint, resp)
			f.logger.Error().
				Int("page", page).
				Int("status", serr.StatusCode).
				Str("body", serr.Body).
				Msg("Unexpected search response status")
			return nil, serr
		}
	}
}

func (f *Fetcher) waitForReset(ctx context.Context, page, attempt int) error {
	status, err := f.limits.Check(ctx)
	if err != nil {
		return err
	}

	wait := status.WaitDuration()
	f.logger.Warn().
		Int("page", page).
		Int("attempt", attempt).
		Int("remaining", status.Remaining).
		Dur("wait", wait).
		Msg("Search rejected with 403 - waiting for rate limit reset")

	ratelimit.RecordWait(ratelimit.WaitForbidden, wait)
	if err := f.sleep(ctx, wait); err != nil {
		return fmt.Errorf("forbidden wait: %w", err)
	}
	return nil
}
