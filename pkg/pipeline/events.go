package pipeline

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/healthsync/server/pkg/domain/health"
	infrapubsub "github.com/healthsync/server/pkg/infrastructure/pubsub"
)

const (
	EventTypeDaySynced = "com.healthsync.day.synced"
	EventSource        = "/healthsync/pipeline"
)

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// DaySynced is the payload of a day-synced event.
type DaySynced struct {
	RunID         string               `json:"run_id"`
	Date          string               `json:"date"`
	Outcome       health.UpsertOutcome `json:"outcome"`
	FoodProcessed bool                 `json:"food_processed"`
	Meals         int                  `json:"meals"`
	HasActivity   bool                 `json:"has_activity"`
	HasSleep      bool                 `json:"has_sleep"`
}

// Notifier announces every synced day on a topic.
type Notifier struct {
	pub   Publisher
	topic string
}

func NewNotifier(pub Publisher, topic string) *Notifier {
	return &Notifier{pub: pub, topic: topic}
}

func (n *Notifier) Deliver(ctx context.Context, day DayResult) error {
	payload := DaySynced{
		RunID:         day.RunID,
		Date:          day.Date,
		Outcome:       day.Outcome,
		FoodProcessed: day.Record.FoodProcessed(),
		Meals:         day.Record.Meals.Count(),
		HasActivity:   day.Record.Metrics.Activity != nil,
		HasSleep:      day.Record.Metrics.Sleep != nil,
	}
	e, err := infrapubsub.NewCloudEvent(EventSource, EventTypeDaySynced, day.Date, payload)
	if err != nil {
		return fmt.Errorf("build event for %s: %w", day.Date, err)
	}
	if _, err := n.pub.PublishCloudEvent(ctx, n.topic, e); err != nil {
		return fmt.Errorf("publish event for %s: %w", day.Date, err)
	}
	return nil
}
