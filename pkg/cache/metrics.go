package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	// CacheMisses tracks cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// NotModifiedResponses tracks 304 responses answered from cache.
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_cache_not_modified_total",
		Help: "Total number of 304 Not Modified responses served from cache",
	})

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
