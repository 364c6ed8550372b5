package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newExecCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL [ARG...]",
		Short: "Run a non-query statement; constraint violations are ignored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			return e.db.Prepared(cmd.Context(), args[0], stringArgs(args[1:]))
		},
	}
}

func newQueryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "query SQL [ARG...]",
		Short: "Run a query and print each row as a JSON object",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			rows, err := e.db.Query(cmd.Context(), args[0], stringArgs(args[1:]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range rows {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
