package cache

import (
	"net/http"
	"time"
)

// CacheEntry represents a cached GitHub response.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// LastModified from the Last-Modified header, zero when absent
	LastModified time.Time `json:"last_modified"`

	// Expires is when the entry is evicted
	Expires time.Time `json:"expires"`

	// StatusCode of the original response
	StatusCode int `json:"status_code"`

	// Headers are the original response headers
	Headers http.Header `json:"headers"`

	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
