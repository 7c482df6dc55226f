package framework

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/healthsync/server/pkg/bootstrap"
	"github.com/healthsync/server/pkg/infrastructure/sentry"
)

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for an HTTP function handler. The returned
// outputs are included in the JSON response, on failure too.
type HandlerFunc func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error)

// Response is the JSON body written for every invocation.
type Response struct {
	ExecutionID string      `json:"execution_id"`
	Status      string      `json:"status"`
	Outputs     interface{} `json:"outputs,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// RequestError marks a failure caused by the request itself.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// BadRequest wraps err so the wrapper answers 400 instead of 500.
func BadRequest(err error) error {
	return &RequestError{Err: err}
}

// WrapHTTP wraps a handler with execution logging, Sentry capture and a JSON response.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		execID := r.Header.Get("X-Execution-Id")
		if execID == "" {
			execID = uuid.NewString()
		}

		base := svc.Logger
		if base == nil {
			base = slog.Default()
		}
		logger := base.With("component", serviceName, "execution_id", execID, "trigger", triggerType(r))
		logger.Info("Function started")

		fwCtx := &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		}

		outputs, err := handler(r.Context(), r, fwCtx)
		if err != nil {
			status := http.StatusInternalServerError
			var reqErr *RequestError
			if errors.As(err, &reqErr) {
				status = http.StatusBadRequest
				logger.Warn("Function rejected request", "error", err)
			} else {
				logger.Error("Function failed", "error", err)
				sentry.CaptureException(err, map[string]string{"service": serviceName, "execution_id": execID}, logger)
			}
			writeJSON(w, status, Response{ExecutionID: execID, Status: "failed", Outputs: outputs, Error: err.Error()})
			return
		}

		logger.Info("Function completed successfully")
		writeJSON(w, http.StatusOK, Response{ExecutionID: execID, Status: "success", Outputs: outputs})
	}
}

// triggerType tells scheduled invocations apart from manual ones.
func triggerType(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("User-Agent"), "Google-Cloud-Scheduler") {
		return "scheduler"
	}
	return "http"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
