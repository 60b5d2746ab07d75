// Command server runs the stock management authentication service.
//
// Configuration is loaded from a YAML file, an optional dotenv file and
// STOCK_* environment variables:
//
//	STOCK_CONFIG       - Path to the YAML config file
//	STOCK_AUTH_SECRET  - HMAC secret for bearer tokens (required, >= 32 bytes)
//	STOCK_PORT         - Listen port (default: 8080)
//	STOCK_STORAGE      - Storage type: "memory" or "postgres" (default: "memory")
//	STOCK_POSTGRES_DSN - PostgreSQL connection string
//	STOCK_LOG_LEVEL    - Log level (default: INFO)
//	STOCK_DEBUG        - Debug categories, e.g. "auth,storage"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/firestorm/stockmanagement/pkg/app"
	"github.com/firestorm/stockmanagement/pkg/config"
	"github.com/firestorm/stockmanagement/pkg/debug"
	transporthttp "github.com/firestorm/stockmanagement/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)
	debug.Log("config", "configuration loaded",
		"storage", cfg.Storage.Type,
		"token_ttl", cfg.Auth.TokenTTL,
		"remember_me_ttl", cfg.Auth.RememberMeTTL,
		"key_rotation", cfg.Auth.PreviousSecret != "",
	)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := transporthttp.NewServer(a.Handler().Handler(),
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
		transporthttp.WithTracing(cfg.Observability.Tracing.Enabled),
		transporthttp.WithCORS(cfg.Server.CORS.AllowedOrigins, cfg.Server.CORS.MaxAge),
		transporthttp.WithLogger(slog.Default()),
	)

	return srv.ListenAndServe()
}
