// Package postgres provides a PostgreSQL credential store. It uses
// pgx/v5 for connection pooling and keeps roles in a TEXT[] column.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firestorm/stockmanagement/pkg/account"
	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/debug"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const selectColumns = `id, username, email, gender, password_hash, roles, enabled, created_at, updated_at`

// Store is a PostgreSQL-backed account store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements account.Store at compile time.
var _ account.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	debug.Log("storage", "postgres pool ready", "max_conns", poolCfg.MaxConns, "min_conns", poolCfg.MinConns)

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// FindByUsername returns the principal with the exact username.
func (s *Store) FindByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM accounts WHERE username = $1`,
		username,
	)
	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return p, nil
}

// ExistsByUsername reports whether username is taken.
func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username)
}

// ExistsByEmail reports whether email is taken.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1 AND email <> '')`, email)
}

func (s *Store) exists(ctx context.Context, query, arg string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking account: %w", err)
	}
	return exists, nil
}

// Create inserts a new principal.
func (s *Store) Create(ctx context.Context, p *auth.Principal) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, username, email, gender, password_hash, roles, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`,
		p.ID, p.Username, p.Email, p.Gender, p.PasswordHash,
		auth.RoleNames(p.Roles), p.Enabled, createdAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, username, hash string) error {
	return s.update(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE username = $1`,
		username, hash,
	)
}

// UpdateProfile replaces email and gender.
func (s *Store) UpdateProfile(ctx context.Context, username, email, gender string) error {
	return s.update(ctx,
		`UPDATE accounts SET email = $2, gender = $3, updated_at = now() WHERE username = $1`,
		username, email, gender,
	)
}

// SetRoles replaces the role set.
func (s *Store) SetRoles(ctx context.Context, username string, roles []auth.Role) error {
	return s.update(ctx,
		`UPDATE accounts SET roles = $2, updated_at = now() WHERE username = $1`,
		username, auth.RoleNames(roles),
	)
}

// SetEnabled enables or disables the account.
func (s *Store) SetEnabled(ctx context.Context, username string, enabled bool) error {
	return s.update(ctx,
		`UPDATE accounts SET enabled = $2, updated_at = now() WHERE username = $1`,
		username, enabled,
	)
}

// Delete removes the account.
func (s *Store) Delete(ctx context.Context, username string) error {
	return s.update(ctx, `DELETE FROM accounts WHERE username = $1`, username)
}

// update runs a single-row statement keyed by username and maps zero
// affected rows to ErrNotFound.
func (s *Store) update(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("updating account: %w", err)
	}
	debug.Trace("storage", "statement executed", "sql", sql, "rows", tag.RowsAffected())
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns every principal ordered by username.
func (s *Store) List(ctx context.Context) ([]*auth.Principal, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []*auth.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return out, nil
}

// HealthCheck verifies the database connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanPrincipal(row pgx.Row) (*auth.Principal, error) {
	var (
		p     auth.Principal
		roles []string
	)
	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &p.Gender, &p.PasswordHash,
		&roles, &p.Enabled, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Unknown role names stored out of band are kept; the authorization
	// gate only ever matches known roles.
	p.Roles = make([]auth.Role, len(roles))
	for i, r := range roles {
		p.Roles[i] = auth.Role(r)
	}
	return &p, nil
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
