package main

import (
	"github.com/spf13/cobra"

	"github.com/oresmash/smashdb/internal/store"
)

func newSchemaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the plugin tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			if err := store.NewPlayerStore(e.db).EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			e.logger.Info("schema ready")
			return nil
		},
	}
}
