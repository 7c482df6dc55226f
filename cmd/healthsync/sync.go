package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/domain/health"
	"github.com/healthsync/server/pkg/pipeline"
)

var (
	syncDateFlag string
	syncToday    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync one date (default yesterday)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		date, err := resolveSyncDate(syncDateFlag, syncToday, time.Now().In(svc.Config.Location))
		if err != nil {
			return err
		}

		syncer, closeFn, err := pipeline.NewFromService(cmd.Context(), svc, sources())
		if err != nil {
			return err
		}
		defer closeFn()

		day := syncer.SyncDate(cmd.Context(), date)
		fmt.Fprintln(cmd.OutOrStdout(), formatDay(day))
		if day.Err != nil {
			captureDay(svc, day.RunID, day.Date, day.Err)
			return day.Err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncDateFlag, "date", "", "Date YYYY-MM-DD (default yesterday)")
	syncCmd.Flags().BoolVar(&syncToday, "today", false, "Sync today instead of yesterday")
	syncCmd.MarkFlagsMutuallyExclusive("date", "today")
}

func resolveSyncDate(date string, today bool, now time.Time) (string, error) {
	switch {
	case today:
		return now.Format(health.DateLayout), nil
	case date != "":
		if _, err := health.ParseDate(date, now.Location()); err != nil {
			return "", fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
		}
		return date, nil
	default:
		return pipeline.Yesterday(now).Format(health.DateLayout), nil
	}
}
