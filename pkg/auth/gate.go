package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/firestorm/stockmanagement/pkg/api"
	"github.com/firestorm/stockmanagement/pkg/observability"
	"github.com/firestorm/stockmanagement/pkg/transport"
)

// Requirement is the access rule a route declares.
type Requirement struct {
	authenticated bool
	role          Role
}

// Public admits every request, with or without an identity.
var Public = Requirement{}

// Authenticated admits any resolved, non-anonymous identity.
func Authenticated() Requirement {
	return Requirement{authenticated: true}
}

// HasRole admits identities holding role r.
func HasRole(r Role) Requirement {
	return Requirement{authenticated: true, role: r}
}

// String describes the requirement for logs.
func (q Requirement) String() string {
	switch {
	case q.role != "":
		return "role:" + string(q.role)
	case q.authenticated:
		return "authenticated"
	default:
		return "public"
	}
}

// Check decides whether id satisfies the requirement. It returns
// ErrUnauthenticated when an identity is needed but absent or anonymous,
// and ErrForbidden when the identity lacks the required role. A
// requirement naming an unknown role admits nobody.
func (q Requirement) Check(id *Identity) error {
	if !q.authenticated {
		return nil
	}
	if !id.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if q.role == "" {
		return nil
	}
	if !IsKnownRole(q.role) || !id.HasRole(q.role) {
		return ErrForbidden
	}
	return nil
}

// Authorize checks the identity bound to ctx against q.
func Authorize(ctx context.Context, q Requirement) error {
	return q.Check(IdentityFromContext(ctx))
}

// DenyFunc writes the response for a denied request. err is
// ErrUnauthenticated or ErrForbidden.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Require wraps a handler with an authorization gate. The decision is made
// before next runs; a denied request never reaches it. A nil deny writes
// the standard JSON error body.
func Require(q Requirement, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = WriteDenied
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(r.Context(), q); err != nil {
				reason := "unauthenticated"
				if errors.Is(err, ErrForbidden) {
					reason = "forbidden"
				}
				observability.AuthorizationDeniedTotal.WithLabelValues(reason).Inc()

				attrs := []any{"path", r.URL.Path, "requirement", q.String()}
				if id := IdentityFromContext(r.Context()); id != nil {
					attrs = append(attrs, "subject", id.Subject)
				}
				slog.Info("authorization denied", append(attrs, "reason", reason)...)

				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteDenied maps a gate error to a 401 or 403 JSON error response.
func WriteDenied(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, ErrForbidden) {
		transport.WriteErrorResponse(w, api.NewForbiddenError("access denied"), http.StatusForbidden)
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="stockmanagement"`)
	transport.WriteErrorResponse(w, api.NewUnauthorizedError("authentication required"), http.StatusUnauthorized)
}
