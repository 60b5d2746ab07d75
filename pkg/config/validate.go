package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/firestorm/stockmanagement/pkg/auth/jwt"
)

// Validate checks the configuration for required fields and valid values.
// Every problem is reported, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if c.Server.CORS.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("server.cors.max_age must be >= 0, got %d", c.Server.CORS.MaxAge))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.secret is required and must be long enough for HS256.
	switch {
	case c.Auth.Secret == "":
		errs = append(errs, fmt.Errorf("auth.secret or auth.secret_file is required"))
	case len(c.Auth.Secret) < jwt.MinKeyLength:
		errs = append(errs, fmt.Errorf("auth.secret must be at least %d bytes, got %d", jwt.MinKeyLength, len(c.Auth.Secret)))
	}
	if c.Auth.PreviousSecret != "" && len(c.Auth.PreviousSecret) < jwt.MinKeyLength {
		errs = append(errs, fmt.Errorf("auth.previous_secret must be at least %d bytes, got %d", jwt.MinKeyLength, len(c.Auth.PreviousSecret)))
	}

	if err := jwt.ValidateTTL(c.Auth.TokenTTL); err != nil {
		errs = append(errs, fmt.Errorf("auth.token_ttl: %w", err))
	}
	if err := jwt.ValidateTTL(c.Auth.RememberMeTTL); err != nil {
		errs = append(errs, fmt.Errorf("auth.remember_me_ttl: %w", err))
	}
	if c.Auth.RememberMeTTL < c.Auth.TokenTTL {
		errs = append(errs, fmt.Errorf("auth.remember_me_ttl (%s) must not be shorter than auth.token_ttl (%s)", c.Auth.RememberMeTTL, c.Auth.TokenTTL))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be in %d..%d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"trace\", \"debug\", \"info\", \"warn\" or \"error\", got %q", c.Logging.Level))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
