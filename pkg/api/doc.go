// Package api defines the wire types of the stockmanagement auth API.
//
// It holds the request and response bodies for login, registration,
// identity introspection and account administration, the structured
// [APIError] returned on every failure, and struct-tag based request
// validation.
//
// Core types:
//   - [LoginRequest] / [AuthResponse]: credential exchange for a bearer token
//   - [RegisterRequest]: self-service account creation
//   - [IdentityResponse]: the caller's public identity
//   - [UserResponse]: an account as seen by administrators
//   - [APIError]: Structured error with type, code, param, and message
//
// The package performs no I/O. Password hashes never appear in any type
// defined here.
package api
