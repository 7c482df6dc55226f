package pubsub

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudEvent(t *testing.T) {
	e, err := NewCloudEvent("/healthsync/pipeline", "com.healthsync.day.synced", "2025-07-20", map[string]string{"date": "2025-07-20"})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID())
	assert.Equal(t, "1.0", e.SpecVersion())
	assert.Equal(t, "2025-07-20", e.Subject())
	assert.False(t, e.Time().IsZero())
	assert.JSONEq(t, `{"date":"2025-07-20"}`, string(e.Data()))

	attrs := Attributes(e)
	assert.Equal(t, "com.healthsync.day.synced", attrs["ce-type"])
	assert.Equal(t, "/healthsync/pipeline", attrs["ce-source"])
	assert.Equal(t, e.ID(), attrs["ce-id"])
	assert.Equal(t, "2025-07-20", attrs["ce-subject"])
}

func TestNewCloudEvent_RequiresSource(t *testing.T) {
	_, err := NewCloudEvent("", "com.healthsync.day.synced", "", nil)
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := &LogPublisher{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	e, err := NewCloudEvent("/healthsync/pipeline", "com.healthsync.day.synced", "2025-07-20", map[string]int{"meals": 2})
	require.NoError(t, err)

	id, err := p.PublishCloudEvent(context.Background(), "healthsync-days", e)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "mock-"))
	assert.Contains(t, buf.String(), "topic=healthsync-days")
	assert.Contains(t, buf.String(), "subject=2025-07-20")
}
