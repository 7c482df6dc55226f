package notion

import (
	"context"
	"fmt"
	"sort"
)

// Columns is the full column set the writer may fill, by type.
var Columns = map[string]string{
	PropDate:            TypeDate,
	PropSteps:           TypeNumber,
	PropDistance:        TypeNumber,
	PropCalories:        TypeNumber,
	PropActiveMinutes:   TypeNumber,
	PropSleepHours:      TypeNumber,
	PropSleepEfficiency: TypeNumber,
	PropDeepSleep:       TypeNumber,
	PropLightSleep:      TypeNumber,
	PropRemSleep:        TypeNumber,
	PropFatBurnZone:     TypeNumber,
	PropCardioZone:      TypeNumber,
	PropPeakZone:        TypeNumber,
	PropRestingHR:       TypeNumber,
	PropSleepStart:      TypeRichText,
	PropSleepEnd:        TypeRichText,
	PropWeight:          TypeNumber,
	PropBMI:             TypeNumber,
	PropBodyFat:         TypeNumber,
	PropHRVDaily:        TypeNumber,
	PropHRVDeep:         TypeNumber,
	PropBreakfast:       TypeRichText,
	PropLunch:           TypeRichText,
	PropDinner:          TypeRichText,
	PropFoodProcessed:   TypeCheckbox,
}

// legacyDuplicates are lowercase sleep columns left behind by an older schema.
var legacyDuplicates = []string{"Sleep start", "Sleep end"}

type SchemaOptions struct {
	DropDuplicates bool
	DryRun         bool
}

// SchemaReport lists what EnsureSchema changed (or would change on a dry run).
type SchemaReport struct {
	Added     []string
	Converted []string
	Removed   []string
}

func (r SchemaReport) Changed() bool {
	return len(r.Added)+len(r.Converted)+len(r.Removed) > 0
}

// EnsureSchema adds missing columns, converts columns of the wrong type and
// optionally drops the legacy duplicates. The Date column is never converted.
func (w *Writer) EnsureSchema(ctx context.Context, opts SchemaOptions) (SchemaReport, error) {
	db, err := w.client.RetrieveDatabase(ctx, w.databaseID)
	if err != nil {
		return SchemaReport{}, fmt.Errorf("retrieve database: %w", err)
	}

	var report SchemaReport
	changes := map[string]*ColumnUpdate{}

	names := make([]string, 0, len(Columns))
	for name := range Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := Columns[name]
		current, exists := db.Properties[name]
		switch {
		case !exists:
			changes[name] = NewColumn(want)
			report.Added = append(report.Added, name)
		case current.Type != want && name != PropDate:
			changes[name] = NewColumn(want)
			report.Converted = append(report.Converted, name)
		}
	}

	if opts.DropDuplicates {
		for _, name := range legacyDuplicates {
			if _, exists := db.Properties[name]; exists {
				changes[name] = nil
				report.Removed = append(report.Removed, name)
			}
		}
	}

	if len(changes) == 0 || opts.DryRun {
		return report, nil
	}

	if _, err := w.client.UpdateDatabase(ctx, w.databaseID, changes); err != nil {
		return SchemaReport{}, fmt.Errorf("update database: %w", err)
	}
	w.logger.Info("Updated database schema",
		"added", len(report.Added),
		"converted", len(report.Converted),
		"removed", len(report.Removed),
	)
	return report, nil
}
