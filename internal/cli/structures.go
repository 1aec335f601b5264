package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/topple/internal/api/response"
)

func newStructuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "structures",
		Short: "List the structures a match can draw",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.StructuresResponse

			if err := client.Get(cmd.Context(), "/api/v1/structures", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
