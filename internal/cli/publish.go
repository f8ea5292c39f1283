package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	var solution, org, tag string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a Solution as the organization's baseline under a tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFrom(ctx)
			sol, err := loadSolution(ctx, e, solution)
			if err != nil {
				return err
			}
			eng, store, err := e.engine(true)
			if err != nil {
				return err
			}
			// file-based solutions are stored too so the snapshot's solution id resolves
			if err := store.Save(ctx, sol); err != nil {
				return err
			}
			snap, err := eng.PublishSolution(ctx, sol, org, tag)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "published %s/%s (snapshot %s, %d assignments) at %s\n",
				snap.Org, snap.Tag, snap.ID, len(snap.Assignments), snap.PublishedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&solution, "solution", "", "solution file or stored solution id")
	cmd.Flags().StringVar(&org, "org", "", "organization (default: the solution's org)")
	cmd.Flags().StringVar(&tag, "tag", "", "snapshot tag, e.g. 2024-w10")
	_ = cmd.MarkFlagRequired("tag")
	return cmd
}
