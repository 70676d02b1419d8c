package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/gh-harvest/internal/config"
	"github.com/Sternrassler/gh-harvest/pkg/cache"
	"github.com/Sternrassler/gh-harvest/pkg/client"
	"github.com/Sternrassler/gh-harvest/pkg/logging"
	"github.com/Sternrassler/gh-harvest/pkg/metrics"
	"github.com/Sternrassler/gh-harvest/pkg/output"
	"github.com/Sternrassler/gh-harvest/pkg/pagination"
	"github.com/Sternrassler/gh-harvest/pkg/ratelimit"
	"github.com/Sternrassler/gh-harvest/pkg/search"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// run executes one harvest. The metrics server, when configured, lives exactly
// as long as the harvest.
func run(ctx context.Context, cfg *config.Config, runID string, stdout, stderr io.Writer) error {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: stderr,
		RunID:  runID,
	})

	g, gctx := errgroup.WithContext(ctx)
	harvestCtx, harvestDone := context.WithCancel(gctx)

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := metrics.Serve(harvestCtx, cfg.MetricsAddr); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer harvestDone()
		return harvest(harvestCtx, cfg, stdout, logger)
	})

	return g.Wait()
}

func harvest(ctx context.Context, cfg *config.Config, stdout io.Writer, logger zerolog.Logger) error {
	start := time.Now()
	logger.Info().
		Int("start_page", cfg.StartPage).
		Int("per_page", cfg.PerPage).
		Str("query", search.Query).
		Msg("Harvest started")

	ccfg := client.DefaultConfig(cfg.Token)
	ccfg.BaseURL = cfg.BaseURL
	ccfg.Timeout = cfg.Timeout

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable - running without response cache")
		} else {
			ccfg.Cache = cache.NewManager(rdb, cfg.Redis.TTL)
			logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("Response cache enabled")
		}
	}

	c, err := client.New(ccfg)
	if err != nil {
		return err
	}
	defer c.Close()

	probe := ratelimit.NewProbe(c, logging.NewLogger("ratelimit"))
	fetcher := search.NewFetcher(c, probe, search.Config{
		MaxForbiddenRetries: cfg.MaxForbiddenRetries,
	}, logging.NewLogger("search"))
	loop := pagination.NewLoop(fetcher, probe, pagination.Config{
		StartPage:     cfg.StartPage,
		PerPage:       cfg.PerPage,
		CourtesyDelay: cfg.CourtesyDelay,
	}, logging.NewLogger("pagination"))

	results, err := loop.FetchAllPages(ctx)
	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Harvest failed")
		return err
	}

	if err := newSink(cfg, stdout).Write(results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	logger.Info().
		Int("items", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Harvest finished")
	return nil
}

func newSink(cfg *config.Config, stdout io.Writer) output.Sink {
	if cfg.Console {
		return output.NewConsoleSink(stdout)
	}
	return output.NewFileSink(cfg.Output, logging.NewLogger("output"))
}
