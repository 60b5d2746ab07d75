package jwt

import (
	"errors"
	"fmt"
)

// MinKeyLength is the shortest accepted HMAC secret in bytes. HS256
// produces a 32 byte MAC; shorter keys weaken it.
const MinKeyLength = 32

// ErrKeyTooShort is returned for secrets below MinKeyLength.
var ErrKeyTooShort = fmt.Errorf("signing key must be at least %d bytes", MinKeyLength)

// KeyProvider supplies HMAC keys to the codec. Tokens are always signed
// with SigningKey and accepted if any key from VerificationKeys matches.
// VerificationKeys must include the signing key.
type KeyProvider interface {
	SigningKey() []byte
	VerificationKeys() [][]byte
}

// StaticKey is a single key used for both signing and verification.
type StaticKey []byte

// SigningKey returns k.
func (k StaticKey) SigningKey() []byte { return k }

// VerificationKeys returns k as the only key.
func (k StaticKey) VerificationKeys() [][]byte { return [][]byte{k} }

// KeySet signs with Current and still accepts tokens signed with any of
// Previous. It supports rotating the secret without invalidating tokens
// issued shortly before the rotation.
type KeySet struct {
	Current  []byte
	Previous [][]byte
}

// SigningKey returns the current key.
func (s KeySet) SigningKey() []byte { return s.Current }

// VerificationKeys returns the current key followed by the previous keys.
func (s KeySet) VerificationKeys() [][]byte {
	keys := make([][]byte, 0, 1+len(s.Previous))
	keys = append(keys, s.Current)
	for _, k := range s.Previous {
		if len(k) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// validateKeys checks every key the provider exposes.
func validateKeys(p KeyProvider) error {
	if p == nil {
		return errors.New("key provider is required")
	}
	if len(p.SigningKey()) < MinKeyLength {
		return fmt.Errorf("signing key: %w", ErrKeyTooShort)
	}
	for i, k := range p.VerificationKeys() {
		if len(k) < MinKeyLength {
			return fmt.Errorf("verification key %d: %w", i, ErrKeyTooShort)
		}
	}
	return nil
}
