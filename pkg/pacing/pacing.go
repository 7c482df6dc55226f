// Package pacing provides the context-aware delays used between upstream calls.
package pacing

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a SleepFunc that never blocks and remembers every requested delay.
type Recorder struct {
	Delays []time.Duration
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.Delays = append(r.Delays, d)
	return ctx.Err()
}
