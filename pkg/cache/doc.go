// Package cache provides a Redis-backed response cache for GitHub search
// pages with ETag support for conditional requests.
//
// GitHub answers a conditional request (If-None-Match) with 304 Not Modified
// when the page is unchanged, and 304 responses do not count against the
// primary rate limit. Caching search pages therefore lets a repeated harvest
// walk unchanged pages without spending quota.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.CacheKey{
//		Endpoint:    "/search/repositories",
//		QueryParams: url.Values{"page": []string{"1"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from GitHub
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// On 304 the cached body is replayed with cache.EntryToResponse.
//
// # Metrics
//
//   - gh_cache_hits_total - Cache hits
//   - gh_cache_misses_total - Cache misses
//   - gh_cache_not_modified_total - 304 responses served from cache
//   - gh_cache_errors_total{operation} - Cache operation errors
//
// Entries are never used to resume a harvest; the loop always starts from its
// configured start page.
package cache
