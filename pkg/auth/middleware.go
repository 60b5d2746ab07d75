package auth

import (
	"log/slog"
	"net/http"

	"github.com/firestorm/stockmanagement/pkg/observability"
)

// Middleware creates the request identity middleware from an AuthChain.
// It runs the chain once per request and binds the resulting identity in
// the request context. It never rejects: a No vote is logged and the
// request continues anonymous so the authorization gate of the target
// route makes the final decision.
func Middleware(chain *AuthChain, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			switch result.Decision {
			case Yes:
				if !result.Identity.IsAuthenticated() {
					slog.Error("authenticator returned identity with empty subject",
						"path", r.URL.Path,
					)
					observability.IdentityResolutionsTotal.WithLabelValues("rejected").Inc()
					break
				}

				slog.Debug("identity resolved",
					"subject", result.Identity.Subject,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				observability.IdentityResolutionsTotal.WithLabelValues("authenticated").Inc()

				ctx := SetIdentity(r.Context(), result.Identity)
				r = r.WithContext(ctx)

			case No:
				slog.Warn("bearer credentials rejected, continuing anonymous",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				observability.IdentityResolutionsTotal.WithLabelValues("rejected").Inc()

			default:
				observability.IdentityResolutionsTotal.WithLabelValues("anonymous").Inc()
			}

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip identity resolution.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}
