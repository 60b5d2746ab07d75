// Package account owns the account lifecycle: registration, password
// changes, profile updates and administration. It is the only writer to
// the credential store; authentication itself only reads.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/auth/password"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

// Store is the full account persistence interface. Implementations must
// be safe for concurrent use.
type Store interface {
	auth.CredentialStore

	// Create stores a new principal. Returns storage.ErrConflict if the
	// username or email is taken.
	Create(ctx context.Context, p *auth.Principal) error

	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, username, hash string) error

	// UpdateProfile replaces email and gender. Returns
	// storage.ErrConflict if the email belongs to another account.
	UpdateProfile(ctx context.Context, username, email, gender string) error

	SetRoles(ctx context.Context, username string, roles []auth.Role) error
	SetEnabled(ctx context.Context, username string, enabled bool) error
	Delete(ctx context.Context, username string) error

	// List returns every principal ordered by username.
	List(ctx context.Context) ([]*auth.Principal, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// Hasher hashes and verifies passwords. *password.Hasher satisfies it.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Sentinel errors.
var (
	ErrUsernameTaken     = errors.New("username is already taken")
	ErrEmailTaken        = errors.New("email is already in use")
	ErrIncorrectPassword = errors.New("password is incorrect")
	ErrNoRoles           = errors.New("at least one role is required")
	ErrInvalidUsername   = errors.New("username is required")
)

// Registration is the input for Register.
type Registration struct {
	Username string
	Password string
	Email    string
	Gender   string
}

// Service implements account operations on top of a Store.
type Service struct {
	store  Store
	hasher Hasher
}

// NewService creates an account service.
func NewService(store Store, hasher Hasher) *Service {
	return &Service{store: store, hasher: hasher}
}

// Register creates an enabled account with the default role set.
func (s *Service) Register(ctx context.Context, reg Registration) (*auth.Principal, error) {
	if reg.Username == "" {
		return nil, ErrInvalidUsername
	}
	if err := password.ValidatePolicy(reg.Password); err != nil {
		return nil, err
	}

	taken, err := s.store.ExistsByUsername(ctx, reg.Username)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.store.ExistsByEmail(ctx, reg.Email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &auth.Principal{
		ID:           uuid.NewString(),
		Username:     reg.Username,
		Email:        reg.Email,
		Gender:       reg.Gender,
		PasswordHash: hash,
		Roles:        auth.DefaultRoles(),
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Lost a race with a concurrent registration.
			return nil, s.conflictCause(ctx, p)
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	slog.Info("account registered", "username", p.Username, "id", p.ID)
	return p.Public(), nil
}

// ChangePassword replaces the password of username after verifying the
// current one. Tokens issued before the change stay valid until expiry.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	p, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, p.PasswordHash) {
		return ErrIncorrectPassword
	}
	return s.setPassword(ctx, username, next)
}

// ResetPassword sets a new password without checking the old one. It is
// used by administrators.
func (s *Service) ResetPassword(ctx context.Context, username, next string) error {
	if _, err := s.store.FindByUsername(ctx, username); err != nil {
		return err
	}
	return s.setPassword(ctx, username, next)
}

func (s *Service) setPassword(ctx context.Context, username, next string) error {
	if err := password.ValidatePolicy(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, username, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	slog.Info("password changed", "username", username)
	return nil
}

// UpdateProfile replaces the email and gender of username. The username
// itself is immutable because issued tokens carry it as their subject.
func (s *Service) UpdateProfile(ctx context.Context, username, email, gender string) (*auth.Principal, error) {
	if err := s.store.UpdateProfile(ctx, username, email, gender); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.Get(ctx, username)
}

// conflictCause reports which unique field made Create fail. The username
// wins when both are taken or the lookups fail.
func (s *Service) conflictCause(ctx context.Context, p *auth.Principal) error {
	if taken, err := s.store.ExistsByUsername(ctx, p.Username); err == nil && taken {
		return ErrUsernameTaken
	}
	if p.Email != "" {
		if taken, err := s.store.ExistsByEmail(ctx, p.Email); err == nil && taken {
			return ErrEmailTaken
		}
	}
	return ErrUsernameTaken
}

// Get returns the account without its password hash.
func (s *Service) Get(ctx context.Context, username string) (*auth.Principal, error) {
	p, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return p.Public(), nil
}

// List returns every account without password hashes.
func (s *Service) List(ctx context.Context) ([]*auth.Principal, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*auth.Principal, len(all))
	for i, p := range all {
		out[i] = p.Public()
	}
	return out, nil
}

// Delete removes the account.
func (s *Service) Delete(ctx context.Context, username string) error {
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}
	slog.Info("account deleted", "username", username)
	return nil
}

// SetRoles replaces the role set of username. Names are validated
// against auth.KnownRoles.
func (s *Service) SetRoles(ctx context.Context, username string, names []string) (*auth.Principal, error) {
	if len(names) == 0 {
		return nil, ErrNoRoles
	}
	roles, err := auth.ParseRoles(names)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRoles(ctx, username, roles); err != nil {
		return nil, err
	}
	slog.Info("roles changed", "username", username, "roles", roles)
	return s.Get(ctx, username)
}

// SetEnabled enables or disables the account. A disabled account can
// neither log in nor use previously issued tokens.
func (s *Service) SetEnabled(ctx context.Context, username string, enabled bool) (*auth.Principal, error) {
	if err := s.store.SetEnabled(ctx, username, enabled); err != nil {
		return nil, err
	}
	slog.Info("account enabled state changed", "username", username, "enabled", enabled)
	return s.Get(ctx, username)
}
