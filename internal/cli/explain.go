package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/arnavshah/roster-engine/pkg/report"
)

func newExplainCmd() *cobra.Command {
	var (
		solution string
		event    string
		person   string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain why an event or person was scheduled the way it was",
		RunE: func(cmd *cobra.Command, args []string) error {
			sol, err := loadSolution(cmd.Context(), envFrom(cmd.Context()), solution)
			if err != nil {
				return err
			}
			ex, err := report.Explain(sol, event, person)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ex)
			}
			return ex.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&solution, "solution", "", "solution file or stored solution id")
	cmd.Flags().StringVar(&event, "event", "", "event id to explain")
	cmd.Flags().StringVar(&person, "person", "", "person id to explain")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	cmd.MarkFlagsMutuallyExclusive("event", "person")
	return cmd
}
