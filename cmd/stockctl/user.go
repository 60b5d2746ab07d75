package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firestorm/stockmanagement/pkg/account"
	"github.com/firestorm/stockmanagement/pkg/app"
	"github.com/firestorm/stockmanagement/pkg/auth"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newUserAddCmd(c),
		newUserPasswdCmd(c),
		newUserRolesCmd(c),
		newUserListCmd(c),
		newUserEnableCmd(c, true),
		newUserEnableCmd(c, false),
		newUserDeleteCmd(c),
	)
	return cmd
}

func newUserAddCmd(c *cli) *cobra.Command {
	var (
		email    string
		gender   string
		password string
		roles    []string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Long: `Create an enabled account. Without --role the account gets the
default role set (ROLE_USER).

Examples:
  stockctl user add alice --email alice@example.com --password secret1
  echo secret1 | stockctl user add root --email root@example.com --role ROLE_ADMIN --role ROLE_USER`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}

			return c.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				p, err := a.Accounts.Register(ctx, account.Registration{
					Username: args[0],
					Password: pw,
					Email:    email,
					Gender:   gender,
				})
				if err != nil {
					return err
				}
				if len(roles) > 0 {
					if p, err = a.Accounts.SetRoles(ctx, p.Username, roles); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", p.Username, joinRoles(p.Roles))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&gender, "gender", "", "gender")
	cmd.Flags().StringVar(&password, "password", "", "password; read from stdin when omitted")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to grant (repeatable)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserPasswdCmd(c *cli) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set an account password without the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Accounts.ResetPassword(cmd.Context(), args[0], pw); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password; read from stdin when omitted")
	return cmd
}

func newUserRolesCmd(c *cli) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "roles <username>",
		Short: "Replace the roles of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				p, err := a.Accounts.SetRoles(cmd.Context(), args[0], roles)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Username, joinRoles(p.Roles))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to grant (repeatable)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newUserListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				all, err := a.Accounts.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USERNAME\tEMAIL\tROLES\tENABLED")
				for _, p := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", p.Username, p.Email, joinRoles(p.Roles), p.Enabled)
				}
				return tw.Flush()
			})
		},
	}
}

func newUserEnableCmd(c *cli, enabled bool) *cobra.Command {
	use, short := "enable <username>", "Enable an account"
	if !enabled {
		use, short = "disable <username>", "Disable an account and reject its tokens"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				p, err := a.Accounts.SetEnabled(cmd.Context(), args[0], enabled)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: enabled=%t\n", p.Username, p.Enabled)
				return nil
			})
		},
	}
}

func newUserDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Accounts.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
				return nil
			})
		},
	}
}

func joinRoles(roles []auth.Role) string {
	return strings.Join(auth.RoleNames(roles), ",")
}
