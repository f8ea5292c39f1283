package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/arnavshah/roster-engine/pkg/report"
)

func newStatsCmd() *cobra.Command {
	var solution string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a Solution's metrics and violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			sol, err := loadSolution(cmd.Context(), envFrom(cmd.Context()), solution)
			if err != nil {
				return err
			}
			st := report.Summarize(sol)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			return st.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&solution, "solution", "", "solution file or stored solution id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}
