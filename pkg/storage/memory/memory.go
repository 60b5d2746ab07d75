// Package memory provides an in-memory credential store for tests,
// development and single-instance deployments. Accounts are lost when
// the process restarts.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/firestorm/stockmanagement/pkg/account"
	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

// Store is an in-memory account store. Reads take a shared lock so
// concurrent authentications never serialize on each other.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*auth.Principal // username -> principal
	emails   map[string]string          // email -> username
}

// Ensure Store implements account.Store at compile time.
var _ account.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*auth.Principal),
		emails:   make(map[string]string),
	}
}

// FindByUsername returns a copy of the principal with the exact username.
func (s *Store) FindByUsername(_ context.Context, username string) (*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.accounts[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(p), nil
}

// ExistsByUsername reports whether username is taken.
func (s *Store) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[username]
	return ok, nil
}

// ExistsByEmail reports whether email is taken.
func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.emails[email]
	return ok, nil
}

// Create stores a new principal. Returns ErrConflict if the username or
// email is already in use.
func (s *Store) Create(_ context.Context, p *auth.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[p.Username]; exists {
		return storage.ErrConflict
	}
	if _, exists := s.emails[p.Email]; exists && p.Email != "" {
		return storage.ErrConflict
	}

	stored := clone(p)
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.accounts[p.Username] = stored
	if p.Email != "" {
		s.emails[p.Email] = p.Username
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(_ context.Context, username, hash string) error {
	return s.update(username, func(p *auth.Principal) error {
		p.PasswordHash = hash
		return nil
	})
}

// UpdateProfile replaces the email and gender. Returns ErrConflict if the
// email belongs to another account.
func (s *Store) UpdateProfile(_ context.Context, username, email, gender string) error {
	return s.update(username, func(p *auth.Principal) error {
		if owner, taken := s.emails[email]; taken && owner != username {
			return storage.ErrConflict
		}
		delete(s.emails, p.Email)
		if email != "" {
			s.emails[email] = username
		}
		p.Email = email
		p.Gender = gender
		return nil
	})
}

// SetRoles replaces the role set.
func (s *Store) SetRoles(_ context.Context, username string, roles []auth.Role) error {
	return s.update(username, func(p *auth.Principal) error {
		p.Roles = slices.Clone(roles)
		return nil
	})
}

// SetEnabled enables or disables the account.
func (s *Store) SetEnabled(_ context.Context, username string, enabled bool) error {
	return s.update(username, func(p *auth.Principal) error {
		p.Enabled = enabled
		return nil
	})
}

// Delete removes the account.
func (s *Store) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.accounts[username]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.emails, p.Email)
	delete(s.accounts, username)
	return nil
}

// List returns copies of all principals ordered by username.
func (s *Store) List(_ context.Context) ([]*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*auth.Principal, 0, len(s.accounts))
	for _, p := range s.accounts {
		out = append(out, clone(p))
	}
	slices.SortFunc(out, func(a, b *auth.Principal) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// update applies fn to the stored principal under the write lock and
// bumps UpdatedAt when fn succeeds.
func (s *Store) update(username string, fn func(*auth.Principal) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.accounts[username]
	if !ok {
		return storage.ErrNotFound
	}
	if err := fn(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// clone returns a deep copy so callers never share state with the store.
func clone(p *auth.Principal) *auth.Principal {
	cp := *p
	cp.Roles = slices.Clone(p.Roles)
	return &cp
}
