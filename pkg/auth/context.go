package auth

import "context"

type ctxKey int

const identityCtxKey ctxKey = iota

// SetIdentity returns a copy of ctx carrying id. Middleware calls it once
// per request; handlers only read.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext returns the identity bound to the request, or nil
// when the request is anonymous.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityCtxKey).(*Identity)
	return id
}

// SubjectFromContext returns the username of an authenticated caller.
// ok is false for anonymous requests.
func SubjectFromContext(ctx context.Context) (subject string, ok bool) {
	id := IdentityFromContext(ctx)
	if !id.IsAuthenticated() {
		return "", false
	}
	return id.Subject, true
}
