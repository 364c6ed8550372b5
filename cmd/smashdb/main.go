package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oresmash/smashdb/internal/build"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "smashdb",
		Short:         "Database tooling for the SmashEngine plugin",
		Long:          "smashdb runs statements against the plugin's MySQL or SQLite database and serves its health and metrics.",
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./smashdb.yaml)")

	rootCmd.AddCommand(newCheckCmd(&configPath))
	rootCmd.AddCommand(newExecCmd(&configPath))
	rootCmd.AddCommand(newQueryCmd(&configPath))
	rootCmd.AddCommand(newSchemaCmd(&configPath))
	rootCmd.AddCommand(newServeCmd(&configPath))
	return rootCmd
}
