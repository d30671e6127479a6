package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/observability"
)

// Middleware creates HTTP middleware from an AuthChain and optional RateLimiter.
// On success the principal is attached to the request context; otherwise the
// request is answered with 401 and next is never called.
func Middleware(chain *AuthChain, limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Principal == nil {
				reason := "invalid_credentials"
				if BearerToken(r) == "" {
					reason = "missing_credentials"
				}
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"reason", reason,
					"error", result.Err,
				)
				observability.AuthRejectedTotal.WithLabelValues(reason).Inc()
				writeError(w, http.StatusUnauthorized, api.NewUnauthorizedError())
				return
			}

			principal := result.Principal
			if principal.Subject == "" {
				slog.Error("authenticator returned principal with empty subject")
				writeError(w, http.StatusInternalServerError, api.NewServerError("internal authentication error"))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"subject", principal.Subject,
				"path", r.URL.Path,
			)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), principal); err != nil {
					slog.Warn("rate limit exceeded",
						"subject", principal.Subject,
						"tier", principal.ServiceTier,
					)
					observability.RateLimitRejectedTotal.WithLabelValues(tierOf(principal)).Inc()
					writeError(w, http.StatusTooManyRequests, api.NewTooManyRequestsError("rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr)
}
