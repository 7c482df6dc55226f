package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// PubSubAdapter publishes CloudEvents in structured mode to Google Cloud Pub/Sub.
// The core context attributes are copied to message attributes so subscribers can filter.
type PubSubAdapter struct {
	Client *pubsub.Client
}

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e cloudevents.Event) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal cloudevent: %w", err)
	}

	topic := a.Client.Topic(topicID)
	res := topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: Attributes(e),
	})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topicID, err)
	}
	return id, nil
}

// Attributes returns the ce-prefixed message attributes of e.
func Attributes(e cloudevents.Event) map[string]string {
	attrs := map[string]string{
		"ce-specversion": e.SpecVersion(),
		"ce-id":          e.ID(),
		"ce-type":        e.Type(),
		"ce-source":      e.Source(),
	}
	if s := e.Subject(); s != "" {
		attrs["ce-subject"] = s
	}
	return attrs
}

// LogPublisher logs events instead of publishing them, for local runs.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e cloudevents.Event) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("MOCK PUBLISH", "component", "pubsub", "topic", topicID, "type", e.Type(), "subject", e.Subject(), "data", string(e.Data()))
	return "mock-" + e.ID(), nil
}
