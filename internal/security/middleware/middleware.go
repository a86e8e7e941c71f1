package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/security/audit"
	"github.com/yourorg/catalogapi/internal/security/auth"
	"github.com/yourorg/catalogapi/internal/security/ratelimit"
)

type PrincipalContextKey struct{}

// publicPath reports whether a request may pass without a bearer token.
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" || path == "/api/login"
}

// JWTMiddleware resolves the request principal from the Authorization header
// and stores it in the context for the handlers.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// Websocket clients cannot set headers from browsers.
				if strings.HasPrefix(r.URL.Path, "/ws/") {
					if token := r.URL.Query().Get("token"); token != "" {
						authHeader = "Bearer " + token
					}
				}
			}
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey{}, claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware throttles per principal; anonymous endpoints are
// throttled per remote address.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.RemoteAddr
			if p, ok := GetPrincipal(r.Context()); ok {
				key = "user:" + strconv.FormatInt(p.UserID, 10)
			}

			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("key", key))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every inbound mutation attempt before it reaches
// the handlers; handlers log the outcome separately.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/login" {
					p, _ := GetPrincipal(r.Context())
					auditLog.LogAction(r.Context(), p, strings.ToLower(r.Method), r.URL.Path, "initiated", "")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateJSONContentType ensures POST/PUT requests carry a JSON body.
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}
			contentType := r.Header.Get("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", contentType),
					slog.String("method", r.Method),
				)
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal returns the authenticated principal for the request, if any.
func GetPrincipal(ctx context.Context) (domain.Principal, bool) {
	if p, ok := ctx.Value(PrincipalContextKey{}).(domain.Principal); ok {
		return p, true
	}
	return domain.Principal{}, false
}
