package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firestorm/stockmanagement/pkg/auth/password"
)

func newHashCmd() *cobra.Command {
	var (
		pw   string
		cost int
	)

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the bcrypt hash of a password",
		Long: `Print the bcrypt hash of a password, for seeding a credential store
by hand. Needs no configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readPassword(cmd, pw)
			if err != nil {
				return err
			}
			hasher, err := password.NewHasher(cost)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&pw, "password", "", "password; read from stdin when omitted")
	cmd.Flags().IntVar(&cost, "cost", password.DefaultCost, "bcrypt cost")
	return cmd
}
