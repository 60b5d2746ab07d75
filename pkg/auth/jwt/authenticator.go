package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/debug"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

// bearerPrefix is matched literally, including case.
const bearerPrefix = "Bearer "

// Authenticator resolves bearer tokens to stored principals.
type Authenticator struct {
	codec *Codec
	store auth.CredentialStore
}

// NewAuthenticator creates a bearer token authenticator.
func NewAuthenticator(codec *Codec, store auth.CredentialStore) *Authenticator {
	return &Authenticator{codec: codec, store: store}
}

// Authenticate extracts a bearer token from the Authorization header,
// verifies it, and looks up the principal it names.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: token invalid, or principal unknown or disabled
//   - Yes: valid token for an enabled principal
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	tokenStr := strings.TrimPrefix(header, bearerPrefix)
	if tokenStr == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("%w: empty bearer token", ErrMalformed),
		}
	}

	subject, err := a.codec.ParseAndVerify(tokenStr)
	if err != nil {
		debug.Log("auth", "bearer token rejected", "error", err)
		return auth.AuthResult{Decision: auth.No, Err: err}
	}

	principal, err := a.store.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = fmt.Errorf("%w: %s", auth.ErrUnknownPrincipal, subject)
		} else {
			err = fmt.Errorf("resolving principal %q: %w", subject, err)
		}
		debug.Log("auth", "bearer subject not resolved", "subject", subject, "error", err)
		return auth.AuthResult{Decision: auth.No, Err: err}
	}
	if !principal.Enabled {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("%w: %s", auth.ErrPrincipalDisabled, subject),
		}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: principal.Identity(),
	}
}
