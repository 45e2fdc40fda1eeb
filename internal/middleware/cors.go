package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/metrics"
	"petanco-intake-api/internal/models"
	"petanco-intake-api/internal/response"
)

// CORS modes.
const (
	CORSPermissive = "permissive"
	CORSStrict     = "strict"
)

var corsAllowedHeaders = []string{APIKeyHeader, "Content-Type", "User-Agent"}

// PermissiveCORS allows any origin to POST. The wildcard header is attached
// even when the request carries no Origin.
func PermissiveCORS() func(http.Handler) http.Handler {
	handler := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         300,
	})

	return func(next http.Handler) http.Handler {
		return handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", http.MethodPost)
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// StrictCORS admits only allowedOrigin. Anything else, including a missing
// Origin, is answered with 403 before the wrapped handler runs. Preflight
// requests from the allowed origin end here with 200 and no body.
func StrictCORS(allowedOrigin, rejectMessage string, writer *response.Writer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || origin != allowedOrigin {
				log.Warn("request rejected: origin not allowed", map[string]interface{}{
					"origin": origin,
					"path":   r.URL.Path,
				})
				metrics.RejectionsTotal.WithLabelValues("origin_not_allowed").Inc()
				writer.JSON(w, http.StatusForbidden, models.OriginErrorResponse{Error: rejectMessage})
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
