package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults. The credential store sees one short query per
// authenticated request, so the pool stays small.
const (
	defaultMaxConns        int32 = 10
	defaultMinConns        int32 = 2
	defaultMaxConnLifetime       = 30 * time.Minute
	defaultConnectTimeout        = 5 * time.Second
)

// Config holds PostgreSQL connection and behavior settings.
type Config struct {
	// DSN is a libpq URL or key/value string,
	// e.g. "postgres://stock:secret@db:5432/stock?sslmode=require".
	DSN string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// ConnectTimeout bounds each new connection attempt.
	ConnectTimeout time.Duration

	// MigrateOnStart applies pending schema migrations in New.
	MigrateOnStart bool
}

// poolConfig parses the DSN and applies pool limits. Zero fields take
// the package defaults; MinConns never exceeds MaxConns.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	pc.MaxConns = orDefault(c.MaxConns, defaultMaxConns)
	pc.MinConns = min(orDefault(c.MinConns, defaultMinConns), pc.MaxConns)
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, defaultMaxConnLifetime)
	pc.ConnConfig.ConnectTimeout = orDefault(c.ConnectTimeout, defaultConnectTimeout)

	return pc, nil
}

// orDefault returns v unless it is zero.
func orDefault[T int32 | time.Duration](v, fallback T) T {
	if v == 0 {
		return fallback
	}
	return v
}
