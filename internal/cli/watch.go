package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gabyx/devenv/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch <task>...",
		Short: "Re-run tasks on a cron schedule until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New(schedule)
			if err != nil {
				return err
			}

			return w.Start(cmd.Context(), func(ctx context.Context) error {
				_, _, err := runOnce(ctx, args)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule, e.g. \"*/5 * * * *\"")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}
