package credentials

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/auth/password"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

type fakeStore struct {
	principals map[string]*auth.Principal
	err        error
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (*auth.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := s.principals[username]
	return ok, nil
}

func (s *fakeStore) ExistsByEmail(context.Context, string) (bool, error) {
	return false, nil
}

// countingVerifier records which verification path ran.
type countingVerifier struct {
	*password.Hasher
	dummyCalls int
}

func (c *countingVerifier) VerifyDummy(plaintext string) bool {
	c.dummyCalls++
	return c.Hasher.VerifyDummy(plaintext)
}

func setup(t *testing.T) (*Authenticator, *countingVerifier) {
	t.Helper()
	h, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	store := &fakeStore{principals: map[string]*auth.Principal{
		"alice": {Username: "alice", Email: "alice@example.com", PasswordHash: hash, Roles: []auth.Role{auth.RoleUser}, Enabled: true},
		"bob":   {Username: "bob", PasswordHash: hash, Roles: []auth.Role{auth.RoleUser}, Enabled: false},
	}}
	v := &countingVerifier{Hasher: h}
	return New(store, v), v
}

func TestAuthenticate(t *testing.T) {
	a, _ := setup(t)

	p, err := a.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Username != "alice" {
		t.Errorf("username = %q, want alice", p.Username)
	}
	if p.PasswordHash != "" {
		t.Error("returned principal carries the password hash")
	}
	if !p.HasRole(auth.RoleUser) {
		t.Errorf("roles = %v, want ROLE_USER", p.Roles)
	}
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		wantDummy bool
	}{
		{"wrong password", "alice", "wrong", false},
		{"unknown username", "mallory", "secret1", true},
		{"case differs", "Alice", "secret1", true},
		{"disabled account", "bob", "secret1", false},
		{"empty password", "alice", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, v := setup(t)

			p, err := a.Authenticate(context.Background(), tt.username, tt.password)
			if p != nil {
				t.Errorf("principal = %+v, want nil", p)
			}
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
			if err.Error() != auth.ErrInvalidCredentials.Error() {
				t.Errorf("error message %q leaks detail", err.Error())
			}
			if tt.wantDummy && v.dummyCalls != 1 {
				t.Errorf("dummy verifications = %d, want 1", v.dummyCalls)
			}
		})
	}
}

func TestAuthenticateRejectsPasswordWithSuffix(t *testing.T) {
	h, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	pw := strings.Repeat("a", password.MaxBytes)
	hash, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	store := &fakeStore{principals: map[string]*auth.Principal{
		"carol": {Username: "carol", PasswordHash: hash, Roles: []auth.Role{auth.RoleUser}, Enabled: true},
	}}
	a := New(store, h)

	if _, err := a.Authenticate(context.Background(), "carol", pw); err != nil {
		t.Fatalf("Authenticate(exact): %v", err)
	}
	p, err := a.Authenticate(context.Background(), "carol", pw+"TRAILING-JUNK")
	if p != nil {
		t.Errorf("principal = %+v, want nil", p)
	}
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateStoreError(t *testing.T) {
	h, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	storeErr := errors.New("database unavailable")
	a := New(&fakeStore{err: storeErr}, h)

	_, err = a.Authenticate(context.Background(), "alice", "secret1")
	if !errors.Is(err, storeErr) {
		t.Errorf("err = %v, want wrapped store error", err)
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		t.Error("store failure reported as invalid credentials")
	}
}
