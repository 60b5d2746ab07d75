// Package password hashes and verifies account passwords with bcrypt
// and enforces the password policy.
package password

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/firestorm/stockmanagement/pkg/observability"
)

// Password policy bounds. bcrypt ignores input past 72 bytes, so longer
// passwords are refused rather than silently truncated.
const (
	MinLength = 6
	MaxBytes  = 72
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = bcrypt.DefaultCost

// ErrWeakPassword is returned for passwords that violate the policy.
var ErrWeakPassword = errors.New("password does not meet policy")

// ValidatePolicy checks plaintext against the password policy.
func ValidatePolicy(plaintext string) error {
	switch {
	case strings.TrimSpace(plaintext) == "":
		return fmt.Errorf("%w: must not be blank", ErrWeakPassword)
	case utf8.RuneCountInString(plaintext) < MinLength:
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, MinLength)
	case len(plaintext) > MaxBytes:
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, MaxBytes)
	}
	return nil
}

// Hasher produces and checks bcrypt hashes at a fixed cost. It is safe
// for concurrent use.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher creates a hasher. A zero cost selects DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of plaintext. Only the byte limit is
// enforced here; callers accepting new passwords run ValidatePolicy.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxBytes {
		return "", fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, MaxBytes)
	}

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	observability.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash never
// matches, and neither does a plaintext longer than MaxBytes: bcrypt would
// compare only its first 72 bytes. The comparison still runs so timing
// does not depend on the input length.
func (h *Hasher) Verify(plaintext, hash string) bool {
	overlong := len(plaintext) > MaxBytes
	if overlong {
		plaintext = plaintext[:MaxBytes]
	}

	start := time.Now()
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	observability.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	return err == nil && !overlong
}

// VerifyDummy spends the same time as Verify against a real hash and
// always returns false. Callers use it when no stored hash exists so that
// response timing does not reveal whether an account exists.
func (h *Hasher) VerifyDummy(plaintext string) bool {
	h.dummyOnce.Do(func() {
		// The error is impossible for a fixed short input and a validated cost.
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.cost)
	})
	h.Verify(plaintext, string(h.dummy))
	return false
}
