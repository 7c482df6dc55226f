package fitbit

import (
	"math"
	"time"

	"github.com/healthsync/server/pkg/domain/health"
)

// sleepTimeLayout is the local timestamp format of startTime/endTime.
const sleepTimeLayout = "2006-01-02T15:04:05.000"

type stageMinutes struct {
	Deep  int
	Light int
	Rem   int
}

// stageVariant picks the one payload shape the stage minutes are read from.
// Priority: aggregated summary, then raw segments, then legacy minute flags.
func stageVariant(s sleepLog) health.StageVariant {
	switch {
	case s.Levels != nil && len(s.Levels.Summary) > 0:
		return health.StageVariantSummary
	case s.Levels != nil && len(s.Levels.Data) > 0:
		return health.StageVariantSegments
	case len(s.MinuteData) > 0:
		return health.StageVariantLegacy
	default:
		return health.StageVariantNone
	}
}

func parseStages(s sleepLog) (health.StageVariant, stageMinutes) {
	variant := stageVariant(s)
	switch variant {
	case health.StageVariantSummary:
		return variant, stagesFromSummary(s.Levels.Summary)
	case health.StageVariantSegments:
		return variant, stagesFromSegments(s.Levels.Data, s.Levels.ShortData)
	case health.StageVariantLegacy:
		return variant, stagesFromMinuteMarks(s.MinuteData)
	default:
		return variant, stageMinutes{}
	}
}

func stagesFromSummary(summary map[string]stageSummary) stageMinutes {
	return stageMinutes{
		Deep:  summary["deep"].Minutes,
		Light: summary["light"].Minutes,
		Rem:   summary["rem"].Minutes,
	}
}

// stagesFromSegments sums the long and short segment lists per stage.
// Each segment is truncated to whole minutes on its own before summing.
func stagesFromSegments(segments ...[]sleepSegment) stageMinutes {
	var m stageMinutes
	for _, list := range segments {
		for _, seg := range list {
			minutes := seg.Seconds / 60
			switch seg.Level {
			case "deep":
				m.Deep += minutes
			case "light":
				m.Light += minutes
			case "rem":
				m.Rem += minutes
			}
		}
	}
	return m
}

// stagesFromMinuteMarks has no staging; every asleep minute counts as light.
func stagesFromMinuteMarks(marks []minuteMark) stageMinutes {
	var m stageMinutes
	for _, mark := range marks {
		if mark.Value == "1" {
			m.Light++
		}
	}
	return m
}

// selectMainSleep returns the session flagged main sleep for date, else the most
// recent session of that date by start time, else nil.
func selectMainSleep(sessions []sleepLog, date string) *sleepLog {
	for i := range sessions {
		if sessions[i].DateOfSleep == date && sessions[i].IsMainSleep {
			return &sessions[i]
		}
	}

	var latest *sleepLog
	for i := range sessions {
		s := &sessions[i]
		if s.DateOfSleep != date {
			continue
		}
		if latest == nil || startsAfter(s.StartTime, latest.StartTime) {
			latest = s
		}
	}
	return latest
}

func startsAfter(a, b string) bool {
	ta, errA := time.Parse(sleepTimeLayout, a)
	tb, errB := time.Parse(sleepTimeLayout, b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}

func toSleep(s *sleepLog) *health.Sleep {
	variant, stages := parseStages(*s)
	return &health.Sleep{
		Hours:        roundTo(float64(s.MinutesAsleep)/60, 1),
		Efficiency:   s.Efficiency,
		Start:        s.StartTime,
		End:          s.EndTime,
		DeepMinutes:  stages.Deep,
		LightMinutes: stages.Light,
		RemMinutes:   stages.Rem,
		Variant:      variant,
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
