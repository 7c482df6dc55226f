package sentry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
	ServerName  string
}

var enabled bool

// Init initializes Sentry. Without a DSN, capturing is a no-op.
func Init(cfg Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		logger.Debug("Sentry DSN not configured - error tracking disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		ServerName:  cfg.ServerName,
		BeforeSend:  scrubEvent,
	})
	if err != nil {
		logger.Error("Failed to initialize Sentry", "error", err)
		return fmt.Errorf("sentry init: %w", err)
	}

	enabled = true
	logger.Info("Sentry initialized", "environment", cfg.Environment, "release", cfg.Release)
	return nil
}

// scrubEvent drops credentials from captured requests.
func scrubEvent(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "Cookie")
		event.Request.QueryString = ""
	}
	return event
}

// CaptureException reports err tagged with the given values, e.g. date and run_id.
func CaptureException(err error, tags map[string]string, logger *slog.Logger) {
	if err == nil || !enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})

	if logger != nil {
		logger.Debug("Exception captured in Sentry", "error", err.Error())
	}
}

// Flush waits for queued events. Call it before the process exits.
func Flush(timeout time.Duration) bool {
	if !enabled {
		return true
	}
	return sentry.Flush(timeout)
}

// RecoverAndCapture recovers from a panic, captures it and re-panics.
// Use it deferred at the top of main or a function handler.
func RecoverAndCapture(logger *slog.Logger) {
	if r := recover(); r != nil {
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", r)
		}
		CaptureException(err, map[string]string{"panic": "true"}, logger)
		Flush(2 * time.Second)
		panic(r)
	}
}
