package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// GetSlogHandlerOptions returns handler options using Cloud Logging keys.
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	comp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			comp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: comp,
	}
}

func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false
		}
		return true
	})
	if comp == "" {
		return h.Handler.Handle(ctx, r)
	}

	// The component attribute stays in the structured payload.
	prefixed := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("[%s] %s", comp, r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		prefixed.AddAttrs(a)
		return true
	})
	return h.Handler.Handle(ctx, prefixed)
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a logger tagged with the service name. JSON goes to stdout
// for Cloud Logging; the text format is meant for terminals and goes to w.
func NewLogger(serviceName, format string, w io.Writer) *slog.Logger {
	opts := GetSlogHandlerOptions(ParseLevel(os.Getenv("LOG_LEVEL")))

	var handler slog.Handler
	if format == LogFormatText {
		if w == nil {
			w = os.Stderr
		}
		handler = slog.NewTextHandler(w, opts)
	} else {
		if w == nil {
			w = os.Stdout
		}
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// InitLogger creates the service logger and installs it as the default.
func InitLogger(serviceName, format string) *slog.Logger {
	logger := NewLogger(serviceName, format, nil)
	slog.SetDefault(logger)
	return logger
}
