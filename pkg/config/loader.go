package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, STOCK_CONFIG env, ./config.yaml, /etc/stockmanagement/config.yaml)
//  3. Dotenv file
//  4. STOCK_* environment variable overrides
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := loadDotenv(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. STOCK_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/stockmanagement/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("STOCK_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/stockmanagement/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadDotenv loads STOCK_ENV_FILE if set, otherwise ./.env when present.
// Variables already in the environment are left untouched.
func loadDotenv() error {
	if path := os.Getenv("STOCK_ENV_FILE"); path != "" {
		return godotenv.Load(path)
	}
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// applyEnvOverrides maps STOCK_* environment variables to config fields.
// Malformed numeric or duration values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	setInt("STOCK_PORT", &cfg.Server.Port)
	setDuration("STOCK_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("STOCK_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("STOCK_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if v, ok := os.LookupEnv("STOCK_CORS_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.Server.CORS.AllowedOrigins = splitList(v)
	}
	setInt("STOCK_CORS_MAX_AGE", &cfg.Server.CORS.MaxAge)

	setString("STOCK_STORAGE", &cfg.Storage.Type)
	setString("STOCK_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	setString("STOCK_POSTGRES_DSN_FILE", &cfg.Storage.Postgres.DSNFile)
	setBool("STOCK_POSTGRES_MIGRATE", &cfg.Storage.Postgres.MigrateOnStart)

	setString("STOCK_AUTH_SECRET", &cfg.Auth.Secret)
	setString("STOCK_AUTH_SECRET_FILE", &cfg.Auth.SecretFile)
	setString("STOCK_AUTH_PREVIOUS_SECRET", &cfg.Auth.PreviousSecret)
	setString("STOCK_AUTH_PREVIOUS_SECRET_FILE", &cfg.Auth.PreviousSecretFile)
	setDuration("STOCK_TOKEN_TTL", &cfg.Auth.TokenTTL)
	setDuration("STOCK_REMEMBER_ME_TTL", &cfg.Auth.RememberMeTTL)
	setInt("STOCK_BCRYPT_COST", &cfg.Auth.BcryptCost)

	setString("STOCK_LOG_LEVEL", &cfg.Logging.Level)
	setString("STOCK_DEBUG", &cfg.Logging.Debug)

	setBool("STOCK_METRICS_ENABLED", &cfg.Observability.Metrics.Enabled)
	setBool("STOCK_TRACING_ENABLED", &cfg.Observability.Tracing.Enabled)

	return errors.Join(errs...)
}

// splitList splits a comma-separated value, dropping empty items.
// "none" yields an empty list.
func splitList(v string) []string {
	if strings.TrimSpace(v) == "none" {
		return []string{}
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		name  string
		file  string
		value *string
	}{
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"auth.secret_file", cfg.Auth.SecretFile, &cfg.Auth.Secret},
		{"auth.previous_secret_file", cfg.Auth.PreviousSecretFile, &cfg.Auth.PreviousSecret},
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.value = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
