package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petanco-intake-api/internal/cache"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/models"
	"petanco-intake-api/internal/response"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type failingCounter struct{}

func (failingCounter) IncrementWithin(context.Context, string, int64, time.Duration) (int64, bool, error) {
	return 0, false, errors.New("connection refused")
}

func newTestAuthenticator(t *testing.T, secret string, hardened bool, limiter *RateLimiter) *Authenticator {
	t.Helper()
	log := logger.NewTestLogger(t)
	return NewAuthenticator(AuthenticatorOptions{
		Secret:   secret,
		Hardened: hardened,
		Limiter:  limiter,
		Catalog:  messages.For("en"),
		Writer:   response.NewWriter(time.UTC, true, log),
		Log:      log,
	})
}

func submitRequest(key, userAgent string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/petanco-api/v1/submit", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Del("User-Agent")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestAuthenticator_Check(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		hardened bool
		key      string
		ua       string
		wantCode string
	}{
		{name: "matching secret", secret: "s3cret", key: "s3cret", ua: "Petanco/1.0"},
		{name: "wrong secret", secret: "s3cret", key: "other", ua: "Petanco/1.0", wantCode: "rest_forbidden"},
		{name: "missing key", secret: "s3cret", ua: "Petanco/1.0", wantCode: "rest_forbidden"},
		{name: "unconfigured secret denies", secret: "", key: "anything", ua: "Petanco/1.0", wantCode: "rest_forbidden"},
		{name: "unconfigured secret and empty key", secret: "", key: "", ua: "Petanco/1.0", wantCode: "rest_forbidden"},
		{name: "hardened without user agent", secret: "s3cret", hardened: true, key: "s3cret", wantCode: "invalid_user_agent"},
		{name: "user agent checked before secret", secret: "s3cret", hardened: true, key: "wrong", wantCode: "invalid_user_agent"},
		{name: "non-hardened ignores user agent", secret: "s3cret", key: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newTestAuthenticator(t, tt.secret, tt.hardened, nil)
			err := auth.Check(submitRequest(tt.key, tt.ua))
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			rr := httptest.NewRecorder()
			auth.writer.Error(rr, err)
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
		})
	}
}

func TestAuthenticator_MiddlewareRejects(t *testing.T) {
	auth := newTestAuthenticator(t, "s3cret", false, nil)
	var reached bool
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, submitRequest("nope", "Petanco/1.0"))

	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "rest_forbidden", body.Code)
	assert.Equal(t, "Access denied.", body.Message)
	assert.Equal(t, http.StatusForbidden, body.Data.Status)
	assert.NotEmpty(t, body.Data.Callout)
}

func TestRateLimiter_WindowBoundaries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	counter := cache.NewInMemoryCounterWithClock(clock.Now)
	auth := newTestAuthenticator(t, "s3cret", false, NewRateLimiter(counter, 3, RateLimitWindow, ScopeGlobal))

	for i := 1; i <= 3; i++ {
		assert.NoError(t, auth.Check(submitRequest("s3cret", "ua")), "request %d", i)
	}

	err := auth.Check(submitRequest("s3cret", "ua"))
	require.Error(t, err)
	rr := httptest.NewRecorder()
	auth.writer.Error(rr, err)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, rr).Code)

	clock.now = clock.now.Add(RateLimitWindow + time.Second)
	assert.NoError(t, auth.Check(submitRequest("s3cret", "ua")))
}

func TestRateLimiter_UnauthenticatedRequestsDoNotCount(t *testing.T) {
	counter := cache.NewInMemoryCounter()
	auth := newTestAuthenticator(t, "s3cret", false, NewRateLimiter(counter, 1, RateLimitWindow, ScopeGlobal))

	for i := 0; i < 5; i++ {
		assert.Error(t, auth.Check(submitRequest("wrong", "ua")))
	}
	assert.NoError(t, auth.Check(submitRequest("s3cret", "ua")))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	auth := newTestAuthenticator(t, "s3cret", false, NewRateLimiter(failingCounter{}, 1, RateLimitWindow, ScopeGlobal))
	assert.NoError(t, auth.Check(submitRequest("s3cret", "ua")))
}

func TestRateLimiter_Scopes(t *testing.T) {
	a := submitRequest("key-a", "ua")
	b := submitRequest("key-b", "ua")
	b.RemoteAddr = "198.51.100.2:1000"

	global := NewRateLimiter(cache.NewInMemoryCounter(), 1, RateLimitWindow, ScopeGlobal)
	assert.Equal(t, global.bucket(a), global.bucket(b))
	assert.Equal(t, DefaultRateLimitKey, global.bucket(a))

	byIP := NewRateLimiter(cache.NewInMemoryCounter(), 1, RateLimitWindow, ScopeClientIP)
	assert.Equal(t, DefaultRateLimitKey+":ip:203.0.113.7", byIP.bucket(a))
	assert.NotEqual(t, byIP.bucket(a), byIP.bucket(b))

	byKey := NewRateLimiter(cache.NewInMemoryCounter(), 1, RateLimitWindow, ScopeAPIKey)
	assert.NotEqual(t, byKey.bucket(a), byKey.bucket(b))
	assert.NotContains(t, byKey.bucket(a), "key-a")

	ctx := context.Background()
	ok, err := byIP.Allow(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = byIP.Allow(ctx, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = byIP.Allow(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)

	s, err = ParseScope("Client_IP")
	require.NoError(t, err)
	assert.Equal(t, ScopeClientIP, s)

	_, err = ParseScope("per_user")
	assert.Error(t, err)
}

func TestGetClientKey(t *testing.T) {
	cases := map[string]string{
		"203.0.113.7:443": "203.0.113.7",
		"203.0.113.7":     "203.0.113.7",
		"[::1]:8080":      "::1",
		"2001:db8::1":     "2001:db8::1",
	}
	for addr, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		assert.Equal(t, want, GetClientKey(req), addr)
	}
}

func strictHandler(t *testing.T, hits *int32) http.Handler {
	log := logger.NewTestLogger(t)
	gate := StrictCORS("https://petanco.io", "Origin not allowed", response.NewWriter(time.UTC, false, log), log)
	return gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestStrictCORS_RejectsForeignOrigin(t *testing.T) {
	var hits int32
	h := strictHandler(t, &hits)

	for _, origin := range []string{"https://evil.example", ""} {
		req := httptest.NewRequest(http.MethodPost, "/petanco-api/v1/submit", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		var body models.OriginErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "Origin not allowed", body.Error)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestStrictCORS_AllowedOrigin(t *testing.T) {
	var hits int32
	h := strictHandler(t, &hits)

	req := httptest.NewRequest(http.MethodPost, "/petanco-api/v1/submit", nil)
	req.Header.Set("Origin", "https://petanco.io")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "https://petanco.io", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestStrictCORS_Preflight(t *testing.T) {
	var hits int32
	h := strictHandler(t, &hits)

	req := httptest.NewRequest(http.MethodOptions, "/petanco-api/v1/submit", nil)
	req.Header.Set("Origin", "https://petanco.io")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestPermissiveCORS(t *testing.T) {
	h := PermissiveCORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	withOrigin := httptest.NewRequest(http.MethodPost, "/petanco-api/v1/submit", nil)
	withOrigin.Header.Set("Origin", "https://anywhere.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withOrigin)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/petanco-api/v1/submit", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPost, rr.Header().Get("Access-Control-Allow-Methods"))
}
