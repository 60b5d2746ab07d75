// Package transport provides the HTTP middleware chain and JSON error
// plumbing shared by every stockmanagement endpoint.
//
// # Middleware
//
// Middleware wraps an http.Handler with cross-cutting behavior. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID),
// and structured access logging via log/slog. The identity middleware and
// authorization gate in pkg/auth plug into the same chain.
//
// # Errors
//
// Failures leave the service as an api.ErrorResponse JSON body. The HTTP
// status is derived from the api.ErrorType so handlers only decide what
// went wrong, never how it is encoded.
package transport
