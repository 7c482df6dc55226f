package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/bootstrap"
	"github.com/healthsync/server/pkg/pipeline"
)

var mealsDate string

var mealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "Classify the meal photos of one date without writing anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		if err := svc.Config.ValidateFields(bootstrap.FoodFields...); err != nil {
			return err
		}
		date, err := resolveSyncDate(mealsDate, false, time.Now().In(svc.Config.Location))
		if err != nil {
			return err
		}

		locator, closeFn, err := pipeline.NewMealLocator(cmd.Context(), svc)
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := locator.LocateAndClassify(cmd.Context(), date)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatMeals(date, rec))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mealsCmd)
	mealsCmd.Flags().StringVar(&mealsDate, "date", "", "Date YYYY-MM-DD (default yesterday)")
}
