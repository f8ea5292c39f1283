package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a dataset for load-time errors without solving",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := in.problem()
			if err != nil {
				return err
			}
			eng, _, err := envFrom(cmd.Context()).engine(false)
			if err != nil {
				return err
			}
			v := eng.Validate(p)
			s := v.Stats
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "people %d, teams %d, events %d, slots %d, constraints %d, pinned %d\n",
				s.People, s.Teams, s.Events, s.Slots, s.Constraints, s.Pinned)
			if !v.Valid {
				return fmt.Errorf("%w (%s): %s", ErrInvalid, v.Kind, v.Error)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	in.register(cmd)
	return cmd
}
