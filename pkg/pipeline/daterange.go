package pipeline

import (
	"fmt"
	"time"

	"github.com/healthsync/server/pkg/domain/health"
)

// DefaultRangeDays is the length of the default "last week" range.
const DefaultRangeDays = 7

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SingleDay is the range holding only day.
func SingleDay(day time.Time) DateRange {
	return DateRange{Start: day, End: day}
}

// LastWeek is the seven days ending the day before now, in now's location.
func LastWeek(now time.Time) DateRange {
	end := Yesterday(now)
	return DateRange{Start: end.AddDate(0, 0, -(DefaultRangeDays - 1)), End: end}
}

// Yesterday is midnight of the day before now.
func Yesterday(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, now.Location())
}

// ResolveRange turns optional start and end dates into a range. With neither
// bound (or lastWeek set) it is LastWeek; with one bound it is that single day.
func ResolveRange(start, end string, lastWeek bool, now time.Time) (DateRange, error) {
	loc := now.Location()
	if lastWeek || (start == "" && end == "") {
		return LastWeek(now), nil
	}

	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}

	s, err := health.ParseDate(start, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("start date: %w", err)
	}
	e, err := health.ParseDate(end, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("end date: %w", err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// Dates lists every day of the range as YYYY-MM-DD, oldest first.
func (r DateRange) Dates() []string {
	var out []string
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(health.DateLayout))
	}
	return out
}

func (r DateRange) StartDate() string { return r.Start.Format(health.DateLayout) }

func (r DateRange) EndDate() string { return r.End.Format(health.DateLayout) }
