package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/gh-harvest/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	ghPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_pages_fetched_total",
		Help: "Total number of result pages fetched",
	})

	ghItemsCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_items_collected_total",
		Help: "Total number of items appended to result sets",
	})
)

// Item is one opaque result record, passed through byte for byte.
type Item = json.RawMessage

// ResultSet holds items in page order, then in order within each page.
type ResultSet []Item

// PageFetcher fetches a single page of items. An empty slice ends pagination.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, perPage int) ([]Item, error)
}

// RateLimitChecker reports the current quota.
type RateLimitChecker interface {
	Check(ctx context.Context) (ratelimit.Status, error)
}

// Config holds loop configuration.
type Config struct {
	// StartPage is the first page requested
	StartPage int

	// PerPage is the page size sent to the fetcher
	PerPage int

	// CourtesyDelay separates consecutive page requests
	CourtesyDelay time.Duration
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		StartPage:     1,
		PerPage:       30,
		CourtesyDelay: 1 * time.Second,
	}
}

// Loop fetches successive pages until one is empty.
type Loop struct {
	fetcher PageFetcher
	limits  RateLimitChecker
	sleep   SleepFunc
	config  Config
	logger  zerolog.Logger
}

// NewLoop creates a loop. Zero StartPage and PerPage take their defaults.
func NewLoop(fetcher PageFetcher, limits RateLimitChecker, config Config, logger zerolog.Logger) *Loop {
	if config.StartPage <= 0 {
		config.StartPage = 1
	}
	if config.PerPage <= 0 {
		config.PerPage = 30
	}
	if config.CourtesyDelay < 0 {
		config.CourtesyDelay = 0
	}

	return &Loop{
		fetcher: fetcher,
		limits:  limits,
		sleep:   Sleep,
		config:  config,
		logger:  logger,
	}
}

// WithSleep replaces the sleep function, letting tests observe waits.
func (l *Loop) WithSleep(fn SleepFunc) *Loop {
	l.sleep = fn
	return l
}

// FetchAllPages collects every item from StartPage onward. It returns when a
// page is empty, or with the first error from the probe, the fetcher or a
// cancelled sleep; no partial result is returned alongside an error.
func (l *Loop) FetchAllPages(ctx context.Context) (ResultSet, error) {
	start := time.Now()
	results := ResultSet{}
	page := l.config.StartPage

	for {
		status, err := l.limits.Check(ctx)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if status.NeedsThrottle() {
			wait := status.WaitDuration()
			l.logger.Warn().
				Int("page", page).
				Int("remaining", status.Remaining).
				Int64("reset_in", status.ResetInSeconds).
				Dur("wait", wait).
				Msg("Rate limit nearly exhausted - sleeping until reset")

			ratelimit.RecordWait(ratelimit.WaitPreventive, wait)
			if err := l.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("page %d: throttle wait: %w", page, err)
			}
		}

		items, err := l.fetcher.FetchPage(ctx, page, l.config.PerPage)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		ghPagesFetchedTotal.Inc()

		if len(items) == 0 {
			l.logger.Info().
				Int("pages", page-l.config.StartPage).
				Int("items", len(results)).
				Dur("duration", time.Since(start)).
				Msg("Pagination done")
			return results, nil
		}

		results = append(results, items...)
		ghItemsCollectedTotal.Add(float64(len(items)))

		l.logger.Info().
			Int("page", page).
			Int("items", len(items)).
			Int("total", len(results)).
			Msg("Page fetched")

		page++

		if err := l.sleep(ctx, l.config.CourtesyDelay); err != nil {
			return nil, fmt.Errorf("page %d: courtesy delay: %w", page, err)
		}
	}
}
