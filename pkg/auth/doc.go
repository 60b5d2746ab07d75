// Package auth provides stateless bearer-token authentication and
// role-based authorization for the stockmanagement service.
//
// Identity resolution uses a chain-of-responsibility pattern with
// three-outcome voting: each authenticator returns Yes (identity found),
// No (credentials present but invalid), or Abstain (can't handle). Unlike
// a rejecting gateway, the resolution middleware never fails a request:
// a No vote is logged and the request continues anonymous, so public
// routes keep working with a stale token.
//
// Authorization is a separate, per-route decision. Each route declares a
// [Requirement] (public, any authenticated identity, or a specific role)
// and [Require] denies with 401 or 403 before the route handler runs.
//
// The resolved [Identity] travels in the request context; there is no
// global or goroutine-local state.
package auth
