// Package health holds the daily health record model shared by the fetchers,
// the merger and the Notion writer.
package health

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used to key every daily record.
const DateLayout = "2006-01-02"

// DailyMetrics is everything Fitbit reported for one calendar date.
// A nil section means the category could not be fetched; it is never zero-filled here.
type DailyMetrics struct {
	Date     string    `json:"date"`
	Activity *Activity `json:"activity,omitempty"`
	Sleep    *Sleep    `json:"sleep,omitempty"`
	Heart    *Heart    `json:"heart,omitempty"`
	Body     Body      `json:"body"`
	HRV      HRV       `json:"hrv"`
}

type Activity struct {
	Steps         int     `json:"steps"`
	DistanceKm    float64 `json:"distance_km"`
	Calories      int     `json:"calories"`
	ActiveMinutes int     `json:"active_minutes"`
}

// StageVariant records which Fitbit sleep payload shape produced the stage minutes.
type StageVariant string

const (
	StageVariantNone     StageVariant = "none"
	StageVariantSummary  StageVariant = "summary"
	StageVariantSegments StageVariant = "segments"
	StageVariantLegacy   StageVariant = "legacy"
)

// Sleep describes the main sleep session of a date.
// Deep+Light+REM need not add up to the asleep total.
type Sleep struct {
	Hours        float64      `json:"hours"`
	Efficiency   int          `json:"efficiency"`
	Start        string       `json:"start,omitempty"` // local ISO-8601 timestamp as reported
	End          string       `json:"end,omitempty"`
	DeepMinutes  int          `json:"deep_minutes"`
	LightMinutes int          `json:"light_minutes"`
	RemMinutes   int          `json:"rem_minutes"`
	Variant      StageVariant `json:"variant"`
}

type Heart struct {
	RestingBPM *int        `json:"resting_bpm,omitempty"`
	Zones      ZoneMinutes `json:"zones"`
}

// ZoneMinutes holds the minutes spent in the three named Fitbit heart rate zones.
type ZoneMinutes struct {
	FatBurn int `json:"fat_burn"`
	Cardio  int `json:"cardio"`
	Peak    int `json:"peak"`
}

type Body struct {
	WeightKg   *float64 `json:"weight_kg,omitempty"`
	BMI        *float64 `json:"bmi,omitempty"`
	BodyFatPct *float64 `json:"body_fat_pct,omitempty"`
}

type HRV struct {
	DailyRMSSD *float64 `json:"daily_rmssd,omitempty"`
	DeepRMSSD  *float64 `json:"deep_rmssd,omitempty"`
}

// MealSlot is one of the three meal windows a photo can fall into.
type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
)

// MealSlots lists the slots in display order.
var MealSlots = []MealSlot{Breakfast, Lunch, Dinner}

// MealRecord maps each slot to the food descriptions of its photos, in the order they were seen.
type MealRecord struct {
	Slots map[MealSlot][]string `json:"slots"`
}

func NewMealRecord() *MealRecord {
	return &MealRecord{Slots: make(map[MealSlot][]string)}
}

// Add appends one photo description to a slot.
func (m *MealRecord) Add(slot MealSlot, description string) {
	if m.Slots == nil {
		m.Slots = make(map[MealSlot][]string)
	}
	m.Slots[slot] = append(m.Slots[slot], description)
}

// Text renders a slot for display, joining photo descriptions with "; ".
func (m *MealRecord) Text(slot MealSlot) string {
	if m == nil {
		return ""
	}
	return strings.Join(m.Slots[slot], "; ")
}

// Count returns the number of described photos across all slots.
func (m *MealRecord) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, items := range m.Slots {
		n += len(items)
	}
	return n
}

// UpsertOutcome reports what the writer did with a date's row.
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)

// ParseDate parses an ISO calendar date in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}
