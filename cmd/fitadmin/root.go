package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigDir string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "fitadmin",
		Short:         "Operator tasks for the fitness coach backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", ".", "directory holding config.yaml and .env")

	cmd.AddCommand(newCreateAdminCommand(opts))
	return cmd
}
