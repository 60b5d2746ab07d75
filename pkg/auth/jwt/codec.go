// Package jwt implements the bearer token codec and the request
// authenticator that consumes its tokens.
//
// Tokens are compact HS256 JWTs carrying only the registered claims
// sub, iat and exp. There is no server-side state: a token is valid
// while its signature verifies against a configured key and its expiry
// lies in the future.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/firestorm/stockmanagement/pkg/debug"
	"github.com/firestorm/stockmanagement/pkg/observability"
)

// Token validation failures. All three are treated the same by the
// request middleware but are kept distinct for logging and tooling.
var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

// Default token lifetimes.
const (
	DefaultTTL           = time.Hour
	DefaultRememberMeTTL = 7 * 24 * time.Hour
)

// Config holds the codec configuration.
type Config struct {
	// Keys supplies the HMAC secrets. Required.
	Keys KeyProvider

	// TTL is the lifetime of a standard token. Default: 1 hour.
	TTL time.Duration

	// RememberMeTTL is the lifetime of a token issued with remember-me.
	// Default: 7 days.
	RememberMeTTL time.Duration

	// Now returns the current time. Defaults to time.Now; tests inject a
	// fixed clock.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.RememberMeTTL == 0 {
		c.RememberMeTTL = DefaultRememberMeTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Claims is the decoded content of a verified token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and verifies bearer tokens. It holds no mutable state and
// is safe for concurrent use.
type Codec struct {
	config Config
	parser *jwtlib.Parser
}

// ValidateTTL checks a token lifetime. Token timestamps have second
// precision, so the lifetime must be a positive whole number of seconds;
// anything else would make exp disagree with the returned expiry, or
// equal iat.
func ValidateTTL(ttl time.Duration) error {
	if ttl < time.Second || ttl%time.Second != 0 {
		return fmt.Errorf("token lifetime must be a whole number of seconds, at least 1s, got %s", ttl)
	}
	return nil
}

// NewCodec validates the configuration and creates a codec.
func NewCodec(cfg Config) (*Codec, error) {
	cfg.applyDefaults()
	if err := validateKeys(cfg.Keys); err != nil {
		return nil, err
	}
	if err := ValidateTTL(cfg.TTL); err != nil {
		return nil, fmt.Errorf("ttl: %w", err)
	}
	if err := ValidateTTL(cfg.RememberMeTTL); err != nil {
		return nil, fmt.Errorf("remember-me ttl: %w", err)
	}

	return &Codec{
		config: cfg,
		parser: jwtlib.NewParser(
			jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
			jwtlib.WithStrictDecoding(),
			jwtlib.WithExpirationRequired(),
			jwtlib.WithTimeFunc(cfg.Now),
		),
	}, nil
}

// TTL returns the lifetime selected by remember.
func (c *Codec) TTL(remember bool) time.Duration {
	if remember {
		return c.config.RememberMeTTL
	}
	return c.config.TTL
}

// Issue signs a token for subject. The expiry is now plus the standard
// or remember-me lifetime and is returned alongside the token.
func (c *Codec) Issue(subject string, remember bool) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("cannot issue token for empty subject")
	}

	// NumericDate has second precision; truncate so the returned expiry
	// matches what a verifier decodes.
	now := c.config.Now().Truncate(time.Second)
	expiresAt := now.Add(c.TTL(remember))

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(c.config.Keys.SigningKey())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	lifetime := "standard"
	if remember {
		lifetime = "remember_me"
	}
	observability.TokensIssuedTotal.WithLabelValues(lifetime).Inc()
	debug.Trace("tokens", "token issued", "sub", subject, "exp", expiresAt, "lifetime", lifetime)

	return signed, expiresAt, nil
}

// ParseAndVerify checks the token's structure, signature and expiry and
// returns its subject. Failures wrap ErrMalformed, ErrInvalidSignature,
// or ErrExpired.
func (c *Codec) ParseAndVerify(tokenString string) (string, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Verify is ParseAndVerify returning every decoded claim.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	var lastErr error
	for i, key := range c.config.Keys.VerificationKeys() {
		claims, err := c.verifyWith(tokenString, key)
		if err == nil {
			if i > 0 {
				debug.Log("tokens", "token verified with previous key", "sub", claims.Subject, "key", i)
			}
			return claims, nil
		}
		lastErr = err
		// Only a signature mismatch can be resolved by another key.
		if !errors.Is(err, ErrInvalidSignature) {
			break
		}
	}
	return nil, lastErr
}

func (c *Codec) verifyWith(tokenString string, key []byte) (*Claims, error) {
	var rc jwtlib.RegisteredClaims
	_, err := c.parser.ParseWithClaims(tokenString, &rc, func(*jwtlib.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if rc.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}

	claims := &Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}

// classify maps a parser error to one of the codec's sentinel errors.
func classify(err error) error {
	switch {
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
