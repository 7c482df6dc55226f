package pacing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSleep_Elapses(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Sleep returned too early")
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Sleep(context.Background(), time.Second)
	_ = r.Sleep(context.Background(), 2*time.Second)

	if len(r.Delays) != 2 || r.Delays[1] != 2*time.Second {
		t.Errorf("unexpected delays: %v", r.Delays)
	}
}
