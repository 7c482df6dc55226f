package fitbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/server/pkg/domain/health"
)

func TestParseStages_SegmentsFloorEachEntry(t *testing.T) {
	s := sleepLog{Levels: &sleepLevels{
		Data: []sleepSegment{
			{Level: "deep", Seconds: 245},
			{Level: "light", Seconds: 130},
		},
	}}

	variant, m := parseStages(s)

	assert.Equal(t, health.StageVariantSegments, variant)
	assert.Equal(t, stageMinutes{Deep: 4, Light: 2}, m)
}

func TestParseStages_SegmentsIncludeShortData(t *testing.T) {
	s := sleepLog{Levels: &sleepLevels{
		Data:      []sleepSegment{{Level: "rem", Seconds: 600}, {Level: "wake", Seconds: 900}},
		ShortData: []sleepSegment{{Level: "rem", Seconds: 119}, {Level: "light", Seconds: 60}},
	}}

	_, m := parseStages(s)

	assert.Equal(t, stageMinutes{Rem: 11, Light: 1}, m)
}

func TestParseStages_VariantPriority(t *testing.T) {
	tests := []struct {
		name    string
		log     sleepLog
		variant health.StageVariant
		want    stageMinutes
	}{
		{
			name: "summary wins over segments",
			log: sleepLog{Levels: &sleepLevels{
				Summary: map[string]stageSummary{"deep": {Minutes: 60}, "light": {Minutes: 200}, "rem": {Minutes: 90}},
				Data:    []sleepSegment{{Level: "deep", Seconds: 6000}},
			}},
			variant: health.StageVariantSummary,
			want:    stageMinutes{Deep: 60, Light: 200, Rem: 90},
		},
		{
			name: "segments win over minute data",
			log: sleepLog{
				Levels:     &sleepLevels{Data: []sleepSegment{{Level: "deep", Seconds: 180}}},
				MinuteData: []minuteMark{{Value: "1"}, {Value: "1"}},
			},
			variant: health.StageVariantSegments,
			want:    stageMinutes{Deep: 3},
		},
		{
			name: "legacy asleep minutes become light",
			log: sleepLog{
				Levels:     &sleepLevels{},
				MinuteData: []minuteMark{{Value: "1"}, {Value: "2"}, {Value: "1"}, {Value: "3"}, {Value: "1"}},
			},
			variant: health.StageVariantLegacy,
			want:    stageMinutes{Light: 3},
		},
		{
			name:    "nothing to parse",
			log:     sleepLog{},
			variant: health.StageVariantNone,
			want:    stageMinutes{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant, m := parseStages(tt.log)
			assert.Equal(t, tt.variant, variant)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestSelectMainSleep_PrefersMainFlagRegardlessOfOrder(t *testing.T) {
	nap := sleepLog{LogID: 1, DateOfSleep: "2025-07-20", IsMainSleep: false, StartTime: "2025-07-20T14:00:00.000"}
	night := sleepLog{LogID: 2, DateOfSleep: "2025-07-20", IsMainSleep: true, StartTime: "2025-07-19T23:00:00.000"}

	for _, order := range [][]sleepLog{{nap, night}, {night, nap}} {
		got := selectMainSleep(order, "2025-07-20")
		require.NotNil(t, got)
		assert.EqualValues(t, 2, got.LogID)
	}
}

func TestSelectMainSleep_FallsBackToMostRecentOfDate(t *testing.T) {
	sessions := []sleepLog{
		{LogID: 1, DateOfSleep: "2025-07-20", StartTime: "2025-07-20T01:00:00.000"},
		{LogID: 2, DateOfSleep: "2025-07-20", StartTime: "2025-07-20T15:30:00.000"},
		{LogID: 3, DateOfSleep: "2025-07-19", IsMainSleep: true, StartTime: "2025-07-18T23:00:00.000"},
	}

	got := selectMainSleep(sessions, "2025-07-20")

	require.NotNil(t, got)
	assert.EqualValues(t, 2, got.LogID)
	assert.Nil(t, selectMainSleep(sessions, "2025-07-21"))
}

func TestToSleep_RoundsHours(t *testing.T) {
	s := toSleep(&sleepLog{MinutesAsleep: 433, Efficiency: 91})
	assert.Equal(t, 7.2, s.Hours)
	assert.Equal(t, 91, s.Efficiency)
	assert.Equal(t, health.StageVariantNone, s.Variant)
}
