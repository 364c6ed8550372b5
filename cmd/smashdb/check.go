package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the configured database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.db.Connect(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s backend connected\n", e.db.Backend())
			return nil
		},
	}
}
