package notion

import (
	"math"
	"strings"

	"github.com/healthsync/server/pkg/domain/health"
)

// Column names of the health database.
const (
	PropDate            = "Date"
	PropSteps           = "Steps"
	PropDistance        = "Distance (km)"
	PropCalories        = "Calories"
	PropActiveMinutes   = "Active Minutes"
	PropSleepHours      = "Sleep Hours"
	PropSleepEfficiency = "Sleep Efficiency"
	PropDeepSleep       = "Deep Sleep (min)"
	PropLightSleep      = "Light Sleep (min)"
	PropRemSleep        = "REM Sleep (min)"
	PropFatBurnZone     = "Fat Burn Zone (min)"
	PropCardioZone      = "Cardio Zone (min)"
	PropPeakZone        = "Peak Zone (min)"
	PropRestingHR       = "Wake Resting HR"
	PropSleepStart      = "Sleep Start"
	PropSleepEnd        = "Sleep End"
	PropWeight          = "Weight (kg)"
	PropBMI             = "BMI"
	PropBodyFat         = "Body Fat (%)"
	PropHRVDaily        = "HRV Daily RMSSD"
	PropHRVDeep         = "HRV Deep RMSSD"
	PropBreakfast       = "Breakfast"
	PropLunch           = "Lunch"
	PropDinner          = "Dinner"
	PropFoodProcessed   = "Food Photos Processed"
)

// Column types as named by the API.
const (
	TypeNumber   = "number"
	TypeRichText = "rich_text"
	TypeCheckbox = "checkbox"
	TypeDate     = "date"
)

var mealProps = map[health.MealSlot]string{
	health.Breakfast: PropBreakfast,
	health.Lunch:     PropLunch,
	health.Dinner:    PropDinner,
}

// PropertyBuilder accumulates only the properties that have a value, so an
// update never blanks a column the record knows nothing about.
type PropertyBuilder struct {
	props Properties
}

func NewPropertyBuilder() *PropertyBuilder {
	return &PropertyBuilder{props: Properties{}}
}

func (b *PropertyBuilder) Date(name, isoDate string) *PropertyBuilder {
	b.props[name] = PropertyValue{Date: &DateValue{Start: isoDate}}
	return b
}

// Number always writes v, zero included.
func (b *PropertyBuilder) Number(name string, v float64) *PropertyBuilder {
	b.props[name] = PropertyValue{Number: &v}
	return b
}

func (b *PropertyBuilder) Int(name string, v int) *PropertyBuilder {
	return b.Number(name, float64(v))
}

// OptionalNumber writes v only when it is set.
func (b *PropertyBuilder) OptionalNumber(name string, v *float64) *PropertyBuilder {
	if v != nil {
		b.Number(name, *v)
	}
	return b
}

func (b *PropertyBuilder) OptionalInt(name string, v *int) *PropertyBuilder {
	if v != nil {
		b.Int(name, *v)
	}
	return b
}

// Text writes s only when it is not empty.
func (b *PropertyBuilder) Text(name, s string) *PropertyBuilder {
	if s != "" {
		b.props[name] = PropertyValue{RichText: []RichText{{Type: "text", Text: TextSpan{Content: s}}}}
	}
	return b
}

func (b *PropertyBuilder) Checkbox(name string, v bool) *PropertyBuilder {
	b.props[name] = PropertyValue{Checkbox: &v}
	return b
}

func (b *PropertyBuilder) Build() Properties {
	out := make(Properties, len(b.props))
	for k, v := range b.props {
		out[k] = v
	}
	return out
}

// BuildProperties maps a merged record to the database columns.
// Counters default to 0; optional metrics, sleep times and meals are omitted when absent.
func BuildProperties(date string, rec health.MergedRecord) Properties {
	m := rec.Metrics
	b := NewPropertyBuilder().Date(PropDate, date)

	var activity health.Activity
	if m.Activity != nil {
		activity = *m.Activity
	}
	b.Int(PropSteps, activity.Steps).
		Number(PropDistance, round(activity.DistanceKm, 2)).
		Int(PropCalories, activity.Calories).
		Int(PropActiveMinutes, activity.ActiveMinutes)

	var sleep health.Sleep
	if m.Sleep != nil {
		sleep = *m.Sleep
	}
	b.Number(PropSleepHours, sleep.Hours).
		Int(PropSleepEfficiency, sleep.Efficiency).
		Int(PropDeepSleep, sleep.DeepMinutes).
		Int(PropLightSleep, sleep.LightMinutes).
		Int(PropRemSleep, sleep.RemMinutes)
	if clock, ok := ClockTime(sleep.Start); ok {
		b.Text(PropSleepStart, clock)
	}
	if clock, ok := ClockTime(sleep.End); ok {
		b.Text(PropSleepEnd, clock)
	}

	var heart health.Heart
	if m.Heart != nil {
		heart = *m.Heart
	}
	b.Int(PropFatBurnZone, heart.Zones.FatBurn).
		Int(PropCardioZone, heart.Zones.Cardio).
		Int(PropPeakZone, heart.Zones.Peak).
		OptionalInt(PropRestingHR, heart.RestingBPM)

	b.OptionalNumber(PropWeight, m.Body.WeightKg).
		OptionalNumber(PropBMI, m.Body.BMI).
		OptionalNumber(PropBodyFat, m.Body.BodyFatPct).
		OptionalNumber(PropHRVDaily, m.HRV.DailyRMSSD).
		OptionalNumber(PropHRVDeep, m.HRV.DeepRMSSD)

	if rec.FoodProcessed() {
		for _, slot := range health.MealSlots {
			b.Text(mealProps[slot], rec.Meals.Text(slot))
		}
		b.Checkbox(PropFoodProcessed, true)
	}

	return b.Build()
}

// ClockTime extracts "HH:MM" from an ISO-8601 timestamp such as 2025-07-20T14:45:00.000.
func ClockTime(iso string) (string, bool) {
	_, clock, found := strings.Cut(iso, "T")
	if !found || len(clock) < 5 || clock[2] != ':' {
		return "", false
	}
	return clock[:5], true
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
