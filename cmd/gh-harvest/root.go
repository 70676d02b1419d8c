package main

import (
	"fmt"
	"time"

	"github.com/Sternrassler/gh-harvest/internal/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type flagValues struct {
	configPath          string
	token               string
	baseURL             string
	startPage           int
	perPage             int
	courtesyDelay       time.Duration
	maxForbiddenRetries int
	output              string
	console             bool
	redisAddr           string
	cacheTTL            time.Duration
	metricsAddr         string
	logLevel            string
	pretty              bool
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "gh-harvest",
		Short: "Collect popular Python repositories from the GitHub search API",
		Long: `gh-harvest pages through the GitHub repository search for
"language:python stars:>500" sorted by stars, staying inside the API rate
limit, and writes every result once all pages are collected.

Before each page the rate limit is probed; when at most one request remains the
run sleeps until the window resets. A 403 answer triggers the same wait and the
page is requested again.

Authentication:
  A GitHub token is required. Sources, highest precedence first:
  --token, HARVEST_TOKEN, GITHUB_TOKEN, "token" in the --config file.

Output:
  By default results are written to res.json as a 4-space indented JSON array.
  --console prints one "full_name stars" line per repository instead.
  Nothing is written when the run fails.

Examples:
  export GITHUB_TOKEN="<your_token>"
  gh-harvest
  gh-harvest --output data/python.json --per-page 100
  gh-harvest --console --redis-addr localhost:6379 --metrics-addr :9090`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(fv.configPath)
			if err != nil {
				return err
			}
			fv.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, uuid.NewString(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&fv.configPath, "config", "", "YAML config file")
	f.StringVar(&fv.token, "token", "", "GitHub token (overrides GITHUB_TOKEN)")
	f.StringVar(&fv.baseURL, "base-url", "", "GitHub API base URL")
	f.IntVar(&fv.startPage, "start-page", 1, "first page to request")
	f.IntVar(&fv.perPage, "per-page", 30, "results per page (1-100)")
	f.DurationVar(&fv.courtesyDelay, "courtesy-delay", time.Second, "pause between successful pages")
	f.IntVar(&fv.maxForbiddenRetries, "max-forbidden-retries", 0, "give up on a page after this many 403 retries (0 = never)")
	f.StringVarP(&fv.output, "output", "o", "res.json", "JSON output file")
	f.BoolVar(&fv.console, "console", false, "print results to stdout instead of a file")
	f.StringVar(&fv.redisAddr, "redis-addr", "", "Redis address for the ETag response cache (disabled when empty)")
	f.DurationVar(&fv.cacheTTL, "cache-ttl", 10*time.Minute, "lifetime of cached search pages")
	f.StringVar(&fv.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
	f.StringVar(&fv.logLevel, "log-level", "info", "debug, info, warn or error")
	f.BoolVar(&fv.pretty, "pretty", false, "human-readable log output")

	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (fv *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("token") {
		cfg.Token = fv.token
	}
	if changed("base-url") {
		cfg.BaseURL = fv.baseURL
	}
	if changed("start-page") {
		cfg.StartPage = fv.startPage
	}
	if changed("per-page") {
		cfg.PerPage = fv.perPage
	}
	if changed("courtesy-delay") {
		cfg.CourtesyDelay = fv.courtesyDelay
	}
	if changed("max-forbidden-retries") {
		cfg.MaxForbiddenRetries = fv.maxForbiddenRetries
	}
	if changed("output") {
		cfg.Output = fv.output
	}
	if changed("console") {
		cfg.Console = fv.console
	}
	if changed("redis-addr") {
		cfg.Redis.Addr = fv.redisAddr
	}
	if changed("cache-ttl") {
		cfg.Redis.TTL = fv.cacheTTL
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = fv.metricsAddr
	}
	if changed("log-level") {
		cfg.Log.Level = fv.logLevel
	}
	if changed("pretty") {
		cfg.Log.Pretty = fv.pretty
	}
}
