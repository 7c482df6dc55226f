package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// NewCloudEvent creates a standardized CloudEvent v1.0 with a fresh ID.
func NewCloudEvent(source, eventType, subject string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetID(uuid.NewString())
	e.SetType(eventType)
	e.SetSource(source)
	e.SetTime(time.Now().UTC())
	if subject != "" {
		e.SetSubject(subject)
	}

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}
	if err := e.Validate(); err != nil {
		return e, err
	}

	return e, nil
}
