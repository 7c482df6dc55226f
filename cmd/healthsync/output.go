package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/healthsync/server/pkg/domain/health"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
	"github.com/healthsync/server/pkg/integrations/notion"
	"github.com/healthsync/server/pkg/pipeline"
)

var (
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorRed    = lipgloss.Color("#FF0000")
	colorGray   = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

var printer = message.NewPrinter(language.English)

// formatDay renders one progress line of a sync run.
func formatDay(day pipeline.DayResult) string {
	if day.Err != nil {
		return fmt.Sprintf("%s %s  %s", errorStyle.Render("✗"), day.Date, errorStyle.Render(day.Err.Error()))
	}

	m := day.Record.Metrics
	var parts []string
	if m.Activity != nil {
		parts = append(parts, printer.Sprintf("%d steps", m.Activity.Steps))
	}
	if m.Sleep != nil {
		parts = append(parts, printer.Sprintf("%.1fh sleep", m.Sleep.Hours))
	}
	if m.Heart != nil && m.Heart.RestingBPM != nil {
		parts = append(parts, printer.Sprintf("%d bpm resting", *m.Heart.RestingBPM))
	}
	if m.Body.WeightKg != nil {
		parts = append(parts, printer.Sprintf("%.1f kg", *m.Body.WeightKg))
	}
	if day.Record.FoodProcessed() {
		parts = append(parts, printer.Sprintf("%d meal photos", day.Record.Meals.Count()))
	}
	if len(parts) == 0 {
		parts = append(parts, "no data")
	}

	return fmt.Sprintf("%s %s  %-7s %s", okStyle.Render("✓"), day.Date, day.Outcome, dimStyle.Render(strings.Join(parts, ", ")))
}

func formatSummary(s pipeline.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(printer.Sprintf("  created  %d\n", s.Created))
	b.WriteString(printer.Sprintf("  updated  %d\n", s.Updated))

	errored := printer.Sprintf("  errored  %d", s.Errored)
	if s.Errored > 0 {
		errored = errorStyle.Render(errored) + dimStyle.Render(" ("+strings.Join(s.Failed, ", ")+")")
	}
	b.WriteString(errored)
	if s.Aborted {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("  run aborted before the last date"))
	}
	return b.String()
}

func formatMeals(date string, rec *health.MealRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Meals on " + date))
	b.WriteString("\n")
	for _, slot := range health.MealSlots {
		text := rec.Text(slot)
		if text == "" {
			text = dimStyle.Render("-")
		}
		fmt.Fprintf(&b, "  %-10s %s\n", strings.ToUpper(string(slot[:1]))+string(slot[1:]), text)
	}
	return b.String()
}

func formatTokenStatus(provider string, tok *oauth.Token, now time.Time) string {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Sprintf("%-7s %s", provider, errorStyle.Render("missing"))
	}
	exp, ok := accessTokenExpiry(tok)
	switch {
	case !ok:
		return fmt.Sprintf("%-7s %s", provider, warnStyle.Render("expiry unknown"))
	case !exp.After(now):
		return fmt.Sprintf("%-7s %s %s", provider, errorStyle.Render("expired"),
			dimStyle.Render("at "+exp.Local().Format(time.RFC3339)))
	default:
		left := exp.Sub(now).Truncate(time.Minute)
		return fmt.Sprintf("%-7s %s %s", provider, okStyle.Render("valid"),
			dimStyle.Render(fmt.Sprintf("%s left, until %s", left, exp.Local().Format(time.RFC3339))))
	}
}

func formatSchemaReport(r notion.SchemaReport, dryRun bool) string {
	if !r.Changed() {
		return okStyle.Render("Schema is up to date.") + "\n"
	}
	var b strings.Builder
	heading := "Schema updated"
	if dryRun {
		heading = "Schema changes (dry run)"
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")
	for _, group := range []struct {
		label string
		names []string
	}{
		{"added", r.Added},
		{"converted", r.Converted},
		{"removed", r.Removed},
	} {
		for _, name := range group.names {
			fmt.Fprintf(&b, "  %-9s %s\n", group.label, name)
		}
	}
	return b.String()
}
