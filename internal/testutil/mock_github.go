// Package testutil provides a scriptable mock GitHub API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Paths served by the mock.
const (
	RateLimitPath = "/rate_limit"
	SearchPath    = "/search/repositories"
)

// MockResponse defines one scripted response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockGitHub is a configurable mock GitHub API server.
//
// Search responses are served from a per-page queue: each request for page N
// pops the next scripted response for N, and the last response for a page is
// repeated once the queue is drained. Pages without a script answer
// {"items": []}.
type MockGitHub struct {
	server *httptest.Server
	mu     sync.Mutex

	pages     map[int][]MockResponse
	rateLimit MockResponse

	searchRequests    []*http.Request
	rateLimitRequests []*http.Request
}

// NewMockGitHub creates a new mock server with a healthy rate limit.
func NewMockGitHub() *MockGitHub {
	m := &MockGitHub{
		pages:     make(map[int][]MockResponse),
		rateLimit: NewRateLimitResponse(4999, time.Now().Add(time.Hour)),
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// SetRateLimit replaces the /rate_limit response.
func (m *MockGitHub) SetRateLimit(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimit = resp
}

// QueuePage appends responses for the given search page.
func (m *MockGitHub) QueuePage(page int, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = append(m.pages[page], resps...)
}

// SearchRequests returns the received search requests in order.
func (m *MockGitHub) SearchRequests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.searchRequests...)
}

// SearchCount returns the number of search requests received.
func (m *MockGitHub) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searchRequests)
}

// RateLimitCount returns the number of /rate_limit requests received.
func (m *MockGitHub) RateLimitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rateLimitRequests)
}

// RateLimitRequests returns the received /rate_limit requests in order.
func (m *MockGitHub) RateLimitRequests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.rateLimitRequests...)
}

func (m *MockGitHub) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case RateLimitPath:
		m.mu.Lock()
		m.rateLimitRequests = append(m.rateLimitRequests, r.Clone(r.Context()))
		resp := m.rateLimit
		m.mu.Unlock()
		write(w, resp)

	case SearchPath:
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			page = 1
		}

		m.mu.Lock()
		m.searchRequests = append(m.searchRequests, r.Clone(r.Context()))
		resp := NewItemsResponse(nil)
		if queue := m.pages[page]; len(queue) > 0 {
			resp = queue[0]
			if len(queue) > 1 {
				m.pages[page] = queue[1:]
			}
		}
		m.mu.Unlock()

		if etag := resp.Headers["ETag"]; etag != "" && r.Header.Get("If-None-Match") == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		write(w, resp)

	default:
		http.NotFound(w, r)
	}
}

func write(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewRateLimitResponse creates a /rate_limit response with quota headers.
func NewRateLimitResponse(remaining int, reset time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"resources":{}}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": strconv.Itoa(remaining),
			"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewItemsResponse creates a 200 search response with the given items.
func NewItemsResponse(items []map[string]any) MockResponse {
	if items == nil {
		items = []map[string]any{}
	}
	body, _ := json.Marshal(map[string]any{
		"total_count":        len(items),
		"incomplete_results": false,
		"items":              items,
	})
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewForbiddenResponse creates a 403 rate-limit rejection.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewErrorResponse creates a response with an arbitrary status.
func NewErrorResponse(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"message":%q}`, message),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// Repos generates n repository records for page, with distinct full_name and
// stargazers_count values.
func Repos(page, n int) []map[string]any {
	repos := make([]map[string]any, n)
	for i := range repos {
		repos[i] = map[string]any{
			"id":               page*1000 + i,
			"full_name":        fmt.Sprintf("owner%d/repo-%d-%d", page, page, i),
			"stargazers_count": 100000 - page*100 - i,
			"language":         "Python",
		}
	}
	return repos
}
