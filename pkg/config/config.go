// Package config provides unified configuration for the stock management
// service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Dotenv file (STOCK_ENV_FILE or ./.env), never overriding the real environment
//  4. Environment variable overrides (STOCK_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Config holds all configuration for the service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds OpenTelemetry span settings. Spans go to the global
// tracer provider; without one installed they are dropped.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 1 MiB
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig holds cross-origin settings for browser clients.
// An empty origin list disables CORS handling.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"` // default: ["*"]
	MaxAge         int      `yaml:"max_age"`         // preflight cache seconds, default: 300
}

// StorageConfig holds credential store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// AuthConfig holds token and password settings. The secret is loaded once
// at startup; changing it requires a restart.
type AuthConfig struct {
	Secret             string        `yaml:"secret"`
	SecretFile         string        `yaml:"secret_file"` // _file variant for secret
	PreviousSecret     string        `yaml:"previous_secret"`
	PreviousSecretFile string        `yaml:"previous_secret_file"` // _file variant for previous_secret
	TokenTTL           time.Duration `yaml:"token_ttl"`            // default: 1h
	RememberMeTTL      time.Duration `yaml:"remember_me_ttl"`      // default: 168h
	BcryptCost         int           `yaml:"bcrypt_cost"`          // default: 10
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"; default: "info"
	Debug string `yaml:"debug"` // comma-separated debug categories, e.g. "auth,storage"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     1 << 20,
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
				MaxAge:         300,
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
		},
		Auth: AuthConfig{
			TokenTTL:      time.Hour,
			RememberMeTTL: 7 * 24 * time.Hour,
			BcryptCost:    10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Enabled: true,
			},
		},
	}
}
