package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arnavshah/roster-engine/pkg/codec"
	"github.com/arnavshah/roster-engine/pkg/engine"
)

func newSolveCmd() *cobra.Command {
	var (
		in      inputFlags
		opts    engine.Options
		out     string
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a date range and write the resulting Solution",
		Long: "Solve assigns people to every event starting inside the range. Slots that\n" +
			"cannot be filled are reported as hard violations in the Solution; only\n" +
			"malformed input makes the command fail.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd.Context())
			p, err := in.problem()
			if err != nil {
				return err
			}
			eng, _, err := e.engine(!noStore)
			if err != nil {
				return err
			}
			sol, err := eng.Solve(cmd.Context(), p, opts)
			if err != nil {
				return err
			}

			if out == "" {
				return codec.Encode(cmd.OutOrStdout(), sol)
			}
			if err := codec.WriteFile(out, sol); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "solution %s: %d assignments, %d hard violations, health %.1f -> %s\n",
				sol.ID, len(sol.Assignments), sol.Metrics.HardViolations, sol.Metrics.HealthScore, out)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "strict or relaxed (default from config)")
	cmd.Flags().StringSliceVar(&opts.Relax, "relax", nil, "constraint categories skipped in relaxed mode")
	cmd.Flags().BoolVar(&opts.ChangeMin, "change-min", false, "prefer the latest published baseline's assignments")
	cmd.Flags().StringVar(&opts.BaselineTag, "baseline-tag", "", "compare against this published tag instead of the latest")
	cmd.Flags().StringVar(&out, "out", "", "write the Solution to this file instead of stdout")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not touch the database (no persistence, no baseline)")
	return cmd
}
