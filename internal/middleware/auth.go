package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"petanco-intake-api/internal/apperrors"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/metrics"
	"petanco-intake-api/internal/response"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "X-Petanco-API-Key"

// Authenticator is the permission check run before the submit handler.
// The rate limiter is consulted only once the caller has authenticated.
type Authenticator struct {
	secret   string
	hardened bool
	limiter  *RateLimiter
	catalog  messages.Catalog
	writer   *response.Writer
	log      logger.Logger
}

type AuthenticatorOptions struct {
	Secret string
	// Hardened rejects requests without a User-Agent before the secret check.
	Hardened bool
	Limiter  *RateLimiter
	Catalog  messages.Catalog
	Writer   *response.Writer
	Log      logger.Logger
}

func NewAuthenticator(opts AuthenticatorOptions) *Authenticator {
	return &Authenticator{
		secret:   opts.Secret,
		hardened: opts.Hardened,
		limiter:  opts.Limiter,
		catalog:  opts.Catalog,
		writer:   opts.Writer,
		log:      opts.Log,
	}
}

// Check returns nil when the request may proceed to the handler.
func (a *Authenticator) Check(r *http.Request) error {
	fields := map[string]interface{}{
		"remote_ip": GetClientKey(r),
		"path":      r.URL.Path,
	}

	if a.hardened && r.Header.Get("User-Agent") == "" {
		a.log.Warn("request rejected: missing User-Agent", fields)
		return apperrors.NewBadRequest(apperrors.CodeInvalidUserAgent, a.catalog.Get(messages.InvalidUserAgent))
	}

	if !secretsMatch(a.secret, r.Header.Get(APIKeyHeader)) {
		a.log.Warn("API authentication failed", fields)
		return apperrors.NewForbidden(a.catalog.Get(messages.Forbidden))
	}

	if a.limiter == nil {
		return nil
	}

	allowed, err := a.limiter.Allow(r.Context(), r)
	if err != nil {
		a.log.WithError(err).Error("rate limit counter unavailable, allowing request", fields)
		return nil
	}
	if !allowed {
		fields["ceiling"] = a.limiter.Ceiling()
		a.log.Warn("rate limit exceeded", fields)
		return apperrors.NewRateLimited(a.catalog.Get(messages.RateLimitExceeded))
	}

	return nil
}

// Middleware rejects the request with the error envelope on failure.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Check(r); err != nil {
			metrics.RejectionsTotal.WithLabelValues(apperrors.As(err).Code).Inc()
			a.writer.Error(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secretsMatch requires both values to be non-empty. An unconfigured secret
// denies everything.
func secretsMatch(secret, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) == 1
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
