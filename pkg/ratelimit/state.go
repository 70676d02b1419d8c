// Package ratelimit reads GitHub's primary rate limit from the
// X-RateLimit-Remaining and X-RateLimit-Reset headers and turns it into
// throttle decisions for the pagination loop.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names carrying the quota signals.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

const (
	// ThrottleThreshold triggers a preventive wait when Remaining is at or
	// below it.
	ThrottleThreshold = 1

	// ResetCushion is added to every wait for the quota window to reset.
	ResetCushion = 1 * time.Second
)

// Status is a point-in-time view of the rate limit. It is recomputed before
// every fetch decision and never stored.
type Status struct {
	// Remaining requests in the current window, 0 when the header was
	// missing or malformed.
	Remaining int

	// ResetInSeconds until the window resets. Negative when the reset epoch
	// is already in the past.
	ResetInSeconds int64
}

// NeedsThrottle reports whether the caller should wait before the next request.
func (s Status) NeedsThrottle() bool {
	return s.Remaining <= ThrottleThreshold
}

// WaitDuration is the time to sleep for the window to reset: the reset delay
// floored at zero, plus ResetCushion.
func (s Status) WaitDuration() time.Duration {
	reset := s.ResetInSeconds
	if reset < 0 {
		reset = 0
	}
	return time.Duration(reset)*time.Second + ResetCushion
}

// ParseHeaders extracts a Status from response headers relative to now.
// Missing or unparseable values count as 0, which forces a conservative wait.
func ParseHeaders(headers http.Header, now time.Time) Status {
	remaining := headerInt(headers, HeaderRemaining)
	if remaining < 0 {
		remaining = 0
	}
	resetEpoch := headerInt(headers, HeaderReset)

	return Status{
		Remaining:      int(remaining),
		ResetInSeconds: resetEpoch - now.Unix(),
	}
}

func headerInt(headers http.Header, name string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(headers.Get(name)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
