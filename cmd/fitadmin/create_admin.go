package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository/store"
	"alcyxob/fitness-coach/internal/service"
)

func newCreateAdminCommand(rootOpts *rootOptions) *cobra.Command {
	var in service.AdminInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an adminmaster account",
		Long: `Create an adminmaster identity and its account in the configured store.

Adminmasters create trainers and assign students; the app has no sign-up
flow for them, so the first one is created here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(rootOpts.ConfigDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			// The memory store dies with this process, so the account would never reach the server.
			if cfg.Database.Driver == config.DriverMemory {
				return fmt.Errorf("create-admin needs a persistent store, database.driver is %q", cfg.Database.Driver)
			}
			// Logs go to stderr so stdout carries only the result.
			logger := config.NewLogger(cfg.Log, os.Stderr)

			ctx := cmd.Context()
			repos, closeStore, err := store.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			provider := identity.NewProvider(repos.Credentials, cfg.JWT.Secret, cfg.JWT.Expiration, logger)
			account, err := service.ProvisionAdmin(ctx, provider, repos.Accounts, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created adminmaster %s (%s)\n", account.Email, account.ID.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "sign-in email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password (at least 6 characters)")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
