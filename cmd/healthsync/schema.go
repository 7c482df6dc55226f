package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthsync/server/pkg/bootstrap"
	"github.com/healthsync/server/pkg/integrations/notion"
	"github.com/healthsync/server/pkg/pipeline"
)

var (
	schemaDropDuplicates bool
	schemaDryRun         bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the Notion database columns",
}

var schemaEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Add missing columns and fix column types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(cmd)
		if err != nil {
			return err
		}
		defer finish(svc)

		if err := svc.Config.ValidateFields(bootstrap.NotionFields...); err != nil {
			return err
		}

		report, err := pipeline.NewNotionWriter(svc).EnsureSchema(cmd.Context(), notion.SchemaOptions{
			DropDuplicates: schemaDropDuplicates,
			DryRun:         schemaDryRun,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatSchemaReport(report, schemaDryRun))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaEnsureCmd)
	schemaEnsureCmd.Flags().BoolVar(&schemaDropDuplicates, "drop-duplicates", false, `Remove the legacy "Sleep start" and "Sleep end" columns`)
	schemaEnsureCmd.Flags().BoolVar(&schemaDryRun, "dry-run", false, "Only report the changes")
}
