package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/pipeline"
)

var (
	backfillStart    string
	backfillEnd      string
	backfillLastWeek bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Sync a range of dates (default the last 7 days)",
	Long:  "Sync every date from --start to --end inclusive. With a single bound only that date is synced; without bounds or with --last-week the 7 days ending yesterday are synced.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		r, err := pipeline.ResolveRange(backfillStart, backfillEnd, backfillLastWeek, time.Now().In(svc.Config.Location))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Backfilling %s to %s", r.StartDate(), r.EndDate())))

		syncer, closeFn, err := pipeline.NewFromService(cmd.Context(), svc, sources(),
			pipeline.WithProgress(func(day pipeline.DayResult) {
				fmt.Fprintln(out, formatDay(day))
				if day.Err != nil {
					captureDay(svc, day.RunID, day.Date, day.Err)
				}
			}),
		)
		if err != nil {
			return err
		}
		defer closeFn()

		summary, err := syncer.Run(cmd.Context(), r)
		fmt.Fprintln(out, formatSummary(summary))
		if err != nil {
			return fmt.Errorf("backfill aborted: %w", err)
		}
		if summary.Errored > 0 {
			return fmt.Errorf("%d of %d dates failed", summary.Errored, summary.Processed())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().StringVarP(&backfillStart, "start", "s", "", "First date YYYY-MM-DD")
	backfillCmd.Flags().StringVarP(&backfillEnd, "end", "e", "", "Last date YYYY-MM-DD")
	backfillCmd.Flags().BoolVarP(&backfillLastWeek, "last-week", "w", false, "Sync the 7 days ending yesterday")
}
