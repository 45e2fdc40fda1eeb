package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"petanco-intake-api/internal/cache"
)

// DefaultRateLimitKey is the single bucket shared by every caller.
const DefaultRateLimitKey = "petanco_api_request_count"

// RateLimitWindow is the fixed window length.
const RateLimitWindow = time.Hour

// Scope selects how requests are grouped into buckets.
type Scope string

const (
	// ScopeGlobal puts every request into one bucket, so one noisy client can
	// use up the quota of all clients.
	ScopeGlobal   Scope = "global"
	ScopeClientIP Scope = "client_ip"
	ScopeAPIKey   Scope = "api_key"
)

// ParseScope maps a configuration value onto a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeClientIP:
		return ScopeClientIP, nil
	case ScopeAPIKey:
		return ScopeAPIKey, nil
	}
	return "", fmt.Errorf("unknown rate limit scope %q", s)
}

// RateLimiter is a fixed-window limiter over an injected counter store.
type RateLimiter struct {
	counter cache.Counter
	ceiling int64
	window  time.Duration
	scope   Scope
}

// NewRateLimiter creates a new rate limiter.
// ceiling: requests allowed per window
// window: fixed window length
func NewRateLimiter(counter cache.Counter, ceiling int, window time.Duration, scope Scope) *RateLimiter {
	return &RateLimiter{
		counter: counter,
		ceiling: int64(ceiling),
		window:  window,
		scope:   scope,
	}
}

// Ceiling returns the configured requests per window.
func (rl *RateLimiter) Ceiling() int64 {
	return rl.ceiling
}

// Allow counts the request against its bucket.
func (rl *RateLimiter) Allow(ctx context.Context, r *http.Request) (bool, error) {
	_, allowed, err := rl.counter.IncrementWithin(ctx, rl.bucket(r), rl.ceiling, rl.window)
	return allowed, err
}

func (rl *RateLimiter) bucket(r *http.Request) string {
	switch rl.scope {
	case ScopeClientIP:
		return DefaultRateLimitKey + ":ip:" + GetClientKey(r)
	case ScopeAPIKey:
		return DefaultRateLimitKey + ":key:" + hashKey(r.Header.Get(APIKeyHeader))
	default:
		return DefaultRateLimitKey
	}
}

// GetClientKey extracts a client identifier from the request.
// chi's RealIP middleware has already folded proxy headers into RemoteAddr.
func GetClientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}
