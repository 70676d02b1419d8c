// Package client provides the GitHub REST HTTP session used by a harvest run:
// bearer authentication, randomized User-Agent, optional ETag response cache,
// and request metrics.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/gh-harvest/pkg/cache"
	"github.com/Sternrassler/gh-harvest/pkg/useragent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// Prometheus metrics for GitHub client operations.
var (
	ghRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_requests_total",
		Help: "Total GitHub requests by endpoint and status",
	}, []string{"endpoint", "status"})

	ghRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gh_request_duration_seconds",
		Help:    "GitHub request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// Client is one HTTP session against the GitHub API.
type Client struct {
	httpClient *http.Client
	transport  http.RoundTripper
	baseURL    *url.URL
	userAgent  useragent.Provider
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without trailing slash
	BaseURL string

	// Token is sent as a bearer credential (REQUIRED)
	Token string

	// UserAgent supplies a header value per request
	UserAgent useragent.Provider

	// Cache enables conditional requests for GetCached. Nil disables caching.
	Cache *cache.Manager

	// Timeout per request
	Timeout time.Duration

	// Transport is the base RoundTripper under the auth layer (default http.DefaultTransport)
	Transport http.RoundTripper
}

// DefaultConfig returns a configuration for api.github.com.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		UserAgent: useragent.New(),
		Timeout:   30 * time.Second,
	}
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.UserAgent == nil {
		cfg.UserAgent = useragent.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})

	return &Client{
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: transport},
			Timeout:   cfg.Timeout,
		},
		transport: transport,
		baseURL:   base,
		userAgent: cfg.UserAgent,
		cache:     cfg.Cache,
		config:    cfg,
		logger:    log.With().Str("component", "client").Logger(),
	}, nil
}

// Get performs a GET against endpoint. Any HTTP status is returned to the
// caller; only transport failures produce an error.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	req, err := c.newRequest(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	return c.do(req, endpoint)
}

// GetCached behaves like Get but revalidates against the response cache.
// A 304 is answered with the cached body and status.
func (c *Client) GetCached(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	if c.cache == nil {
		return c.Get(ctx, endpoint, query)
	}

	req, err := c.newRequest(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	key := cache.CacheKey{Endpoint: endpoint, QueryParams: query}
	entry, err := c.cache.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}
	if entry != nil && cache.ShouldMakeConditionalRequest(entry) {
		cache.AddConditionalHeaders(req, entry)
		c.logger.Debug().Str("endpoint", endpoint).Str("etag", entry.ETag).Msg("Making conditional request")
	}

	resp, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && entry != nil:
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		if err := c.cache.Touch(ctx, key); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cache.EntryToResponse(entry), nil

	case resp.StatusCode == http.StatusOK:
		newEntry, err := cache.ResponseToEntry(resp, c.cache.TTL())
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if newEntry.ETag != "" || !newEntry.LastModified.IsZero() {
			if err := c.cache.Set(ctx, key, newEntry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			}
		}
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, query url.Values) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent.Random())
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	return req, nil
}

func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	start := time.Now()
	defer func() {
		ghRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Executing GitHub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ghRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("github %s: %w", endpoint, err)
	}

	ghRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// Close releases idle connections held by the session.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	if ci, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
