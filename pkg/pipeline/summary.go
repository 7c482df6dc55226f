package pipeline

import "github.com/healthsync/server/pkg/domain/health"

// Summary counts the outcomes of a run.
type Summary struct {
	RunID   string
	Start   string
	End     string
	Created int
	Updated int
	Errored int
	// Failed lists the dates that errored, in run order.
	Failed  []string
	Aborted bool
}

func (s *Summary) add(day DayResult) {
	if day.Err != nil {
		s.Errored++
		s.Failed = append(s.Failed, day.Date)
		return
	}
	switch day.Outcome {
	case health.OutcomeCreated:
		s.Created++
	case health.OutcomeUpdated:
		s.Updated++
	}
}

// Processed is the number of dates attempted.
func (s Summary) Processed() int {
	return s.Created + s.Updated + s.Errored
}
