// Package app assembles the service components from a loaded
// configuration. Both the server and the admin CLI start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firestorm/stockmanagement/pkg/account"
	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/auth/credentials"
	"github.com/firestorm/stockmanagement/pkg/auth/jwt"
	"github.com/firestorm/stockmanagement/pkg/auth/password"
	"github.com/firestorm/stockmanagement/pkg/config"
	"github.com/firestorm/stockmanagement/pkg/storage/memory"
	"github.com/firestorm/stockmanagement/pkg/storage/postgres"
	transporthttp "github.com/firestorm/stockmanagement/pkg/transport/http"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Store    account.Store
	Hasher   *password.Hasher
	Codec    *jwt.Codec
	Accounts *account.Service
	Logins   *credentials.Authenticator
}

// New builds every component described by cfg. The caller owns the
// returned App and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating password hasher: %w", err)
	}

	codec, err := NewCodec(cfg.Auth)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Store:    store,
		Hasher:   hasher,
		Codec:    codec,
		Accounts: account.NewService(store, hasher),
		Logins:   credentials.New(store, hasher),
	}, nil
}

// OpenStore creates the configured credential store.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (account.Store, error) {
	switch cfg.Type {
	case "memory", "":
		slog.Info("storage enabled", "type", "memory")
		return memory.New(), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres", "max_conns", cfg.Postgres.MaxConns)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// NewCodec creates the token codec. A configured previous secret is kept
// for verification so tokens survive a secret rotation.
func NewCodec(cfg config.AuthConfig) (*jwt.Codec, error) {
	var keys jwt.KeyProvider = jwt.StaticKey(cfg.Secret)
	if cfg.PreviousSecret != "" {
		keys = jwt.KeySet{
			Current:  []byte(cfg.Secret),
			Previous: [][]byte{[]byte(cfg.PreviousSecret)},
		}
	}

	codec, err := jwt.NewCodec(jwt.Config{
		Keys:          keys,
		TTL:           cfg.TokenTTL,
		RememberMeTTL: cfg.RememberMeTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}
	return codec, nil
}

// Handler returns the HTTP adapter for the app.
func (a *App) Handler() *transporthttp.Adapter {
	metricsPath := ""
	if a.Config.Observability.Metrics.Enabled {
		metricsPath = a.Config.Observability.Metrics.Path
	}

	return transporthttp.NewAdapter(transporthttp.Deps{
		Accounts: a.Accounts,
		Logins:   a.Logins,
		Codec:    a.Codec,
		Health:   a.Store,
		Chain:    auth.NewAuthChain(jwt.NewAuthenticator(a.Codec, a.Store)),
	}, transporthttp.Config{
		MaxBodySize: a.Config.Server.MaxBodySize,
		MetricsPath: metricsPath,
	})
}

// Close releases the credential store.
func (a *App) Close() error {
	return a.Store.Close()
}
