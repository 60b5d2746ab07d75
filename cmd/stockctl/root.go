package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firestorm/stockmanagement/pkg/app"
	"github.com/firestorm/stockmanagement/pkg/config"
	"github.com/firestorm/stockmanagement/pkg/debug"
)

// opener builds the application from a config file path.
type opener func(ctx context.Context, configPath string) (*app.App, error)

func defaultOpener(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)
	return app.New(ctx, cfg)
}

// cli carries state shared by all subcommands.
type cli struct {
	configPath string
	open       opener
}

// withApp opens the application for the duration of fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := c.open(cmd.Context(), c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "stockctl",
		Short: "Administer stock management accounts and tokens",
		Long: `stockctl manages accounts and bearer tokens directly against the
configured credential store.

Configuration is read the same way the server reads it: --config or
STOCK_CONFIG, then STOCK_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to the YAML config file")

	root.AddCommand(newUserCmd(c), newTokenCmd(c), newHashCmd())
	return root
}

// readPassword returns flagValue, or the first line of stdin when the
// flag was not given.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required (use --password or stdin)")
	}
	return pw, nil
}
