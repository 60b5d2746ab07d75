package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firestorm/stockmanagement/pkg/app"
	"github.com/firestorm/stockmanagement/pkg/auth"
)

func newTokenCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect bearer tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTokenIssueCmd(c), newTokenInspectCmd(c))
	return cmd
}

func newTokenIssueCmd(c *cli) *cobra.Command {
	var remember bool

	cmd := &cobra.Command{
		Use:   "issue <username>",
		Short: "Issue a token for an enabled account",
		Long: `Issue a bearer token without a password. The token is printed on
stdout; its expiry goes to stderr.

Examples:
  stockctl token issue root
  curl -H "Authorization: Bearer $(stockctl token issue root)" localhost:8080/api/v1/users`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				p, err := a.Accounts.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !p.Enabled {
					return fmt.Errorf("%w: %s", auth.ErrPrincipalDisabled, p.Username)
				}

				token, expiresAt, err := a.Codec.Issue(p.Username, remember)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remember, "remember", false, "use the remember-me lifetime")
	return cmd
}

func newTokenInspectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				claims, err := a.Codec.Verify(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "subject:    %s\n", claims.Subject)
				fmt.Fprintf(out, "issued_at:  %s\n", claims.IssuedAt.UTC().Format(time.RFC3339))
				fmt.Fprintf(out, "expires_at: %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
				return nil
			})
		},
	}
}
