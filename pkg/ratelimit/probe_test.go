package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/gh-harvest/internal/testutil"
	"github.com/Sternrassler/gh-harvest/pkg/client"
	"github.com/Sternrassler/gh-harvest/pkg/useragent"
	"github.com/rs/zerolog"
)

func newMockClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("test-token")
	cfg.BaseURL = baseURL
	cfg.UserAgent = useragent.Static("probe-test")

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestProbe_Check(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetRateLimit(testutil.NewRateLimitResponse(0, now.Add(5*time.Second)))

	probe := NewProbe(newMockClient(t, mock.URL()), zerolog.Nop()).
		WithClock(func() time.Time { return now })

	status, err := probe.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if status.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", status.Remaining)
	}
	if status.ResetInSeconds != 5 {
		t.Errorf("ResetInSeconds = %d, want 5", status.ResetInSeconds)
	}
	if got := status.WaitDuration(); got < 6*time.Second {
		t.Errorf("WaitDuration() = %v, want >= 6s", got)
	}

	if mock.RateLimitCount() != 1 {
		t.Errorf("rate limit requests = %d, want 1", mock.RateLimitCount())
	}
	req := mock.RateLimitRequests()[0]
	if req.Header.Get("Authorization") != "Bearer test-token" {
		t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
	}
	if req.Header.Get("User-Agent") != "probe-test" {
		t.Errorf("User-Agent = %q", req.Header.Get("User-Agent"))
	}
}

func TestProbe_Check_MalformedHeadersDegrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRemaining, "n/a")
		w.Header().Set(HeaderReset, "")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewProbe(newMockClient(t, server.URL), zerolog.Nop())

	status, err := probe.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() must not fail on malformed headers: %v", err)
	}
	if status.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", status.Remaining)
	}
	if !status.NeedsThrottle() {
		t.Error("Malformed headers should force a throttle")
	}
	if status.WaitDuration() != ResetCushion {
		t.Errorf("WaitDuration() = %v, want %v", status.WaitDuration(), ResetCushion)
	}
}

func TestProbe_Check_UsesHeadersOnNonOK(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRemaining, "0")
		w.Header().Set(HeaderReset, strconv.FormatInt(now.Unix()+30, 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	probe := NewProbe(newMockClient(t, server.URL), zerolog.Nop()).
		WithClock(func() time.Time { return now })

	status, err := probe.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if status.ResetInSeconds != 30 {
		t.Errorf("ResetInSeconds = %d, want 30", status.ResetInSeconds)
	}
}

type failingGetter struct{ err error }

func (f failingGetter) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	return nil, f.err
}

func TestProbe_Check_PropagatesTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	probe := NewProbe(failingGetter{err: boom}, zerolog.Nop())

	_, err := probe.Check(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Check() error = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "rate limit probe") {
		t.Errorf("Error = %q, want context prefix", err.Error())
	}
}
