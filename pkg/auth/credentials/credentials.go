// Package credentials verifies username and password pairs against the
// credential store. It backs the login endpoint and the admin CLI.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/debug"
	"github.com/firestorm/stockmanagement/pkg/observability"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

// PasswordVerifier checks a plaintext against a stored hash.
// *password.Hasher satisfies it.
type PasswordVerifier interface {
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

// Authenticator checks login credentials.
type Authenticator struct {
	store  auth.CredentialStore
	hasher PasswordVerifier
}

// New creates a credentials authenticator.
func New(store auth.CredentialStore, hasher PasswordVerifier) *Authenticator {
	return &Authenticator{store: store, hasher: hasher}
}

// Authenticate returns the principal for username if password matches.
// Unknown usernames, wrong passwords and disabled accounts all fail with
// auth.ErrInvalidCredentials so the caller cannot tell them apart. The
// returned principal carries no password hash.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (_ *auth.Principal, err error) {
	ctx, span := observability.StartSpan(ctx, "credentials.Authenticate", attribute.String("enduser.id", username))
	defer func() { observability.EndSpan(span, err) }()

	principal, err := a.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.hasher.VerifyDummy(password)
			debug.Log("auth", "login for unknown username", "username", username)
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up %q: %w", username, err)
	}

	if !a.hasher.Verify(password, principal.PasswordHash) {
		debug.Log("auth", "login with wrong password", "username", username)
		return nil, auth.ErrInvalidCredentials
	}

	if !principal.Enabled {
		debug.Log("auth", "login for disabled account", "username", username)
		return nil, auth.ErrInvalidCredentials
	}

	return principal.Public(), nil
}
