package framework

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/healthsync/server/pkg/bootstrap"
)

func testService() *bootstrap.Service {
	return &bootstrap.Service{Logger: slog.New(slog.DiscardHandler)}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestWrapHTTP(t *testing.T) {
	svc := testService()

	handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		if fwCtx.Service != svc {
			t.Error("Service not injected correctly")
		}
		if fwCtx.ExecutionID == "" {
			t.Error("ExecutionID not generated")
		}
		return map[string]interface{}{"date": "2025-07-20"}, nil
	}

	rec := httptest.NewRecorder()
	WrapHTTP("test-service", svc, handler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp.Status != "success" {
		t.Errorf("Expected status success, got %q", resp.Status)
	}
	if resp.ExecutionID == "" {
		t.Error("Expected execution id in response")
	}
	outputs, ok := resp.Outputs.(map[string]interface{})
	if !ok || outputs["date"] != "2025-07-20" {
		t.Errorf("Unexpected outputs: %v", resp.Outputs)
	}
}

func TestWrapHTTP_UsesExecutionIDHeader(t *testing.T) {
	var seen string
	handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		seen = fwCtx.ExecutionID
		return nil, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Execution-Id", "exec-42")
	rec := httptest.NewRecorder()
	WrapHTTP("test-service", testService(), handler)(rec, req)

	if seen != "exec-42" {
		t.Errorf("Expected exec-42, got %q", seen)
	}
}

func TestWrapHTTP_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"handler failure", errors.New("notion down"), http.StatusInternalServerError},
		{"bad request", BadRequest(errors.New("invalid date")), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
				return map[string]interface{}{"date": "2025-07-20"}, tt.err
			}

			rec := httptest.NewRecorder()
			WrapHTTP("test-service", testService(), handler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			resp := decode(t, rec)
			if resp.Status != "failed" || resp.Error != tt.err.Error() {
				t.Errorf("Unexpected response: %+v", resp)
			}
			if resp.Outputs == nil {
				t.Error("Expected outputs on failure")
			}
		})
	}
}

func TestTriggerType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if got := triggerType(req); got != "http" {
		t.Errorf("Expected http, got %s", got)
	}
	req.Header.Set("User-Agent", "Google-Cloud-Scheduler")
	if got := triggerType(req); got != "scheduler" {
		t.Errorf("Expected scheduler, got %s", got)
	}
}
