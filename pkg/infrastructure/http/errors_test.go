package httputil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckResponse_Success(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Body:       http.NoBody,
	}

	if err := CheckResponse(resp); err != nil {
		t.Errorf("Expected nil error for 200 response, got: %v", err)
	}
}

func TestCheckResponse_Error(t *testing.T) {
	body := `{"object":"error","status":400,"code":"validation_error","message":"Sleep Start is not a property that exists."}`
	resp := &http.Response{
		StatusCode: 400,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    httptest.NewRequest("PATCH", "https://api.notion.com/v1/pages/abc", nil),
	}

	err := CheckResponse(resp)
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}

	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("Expected *HTTPError, got %T", err)
	}
	if httpErr.StatusCode != 400 {
		t.Errorf("Expected status 400, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Error(), "Sleep Start") {
		t.Errorf("Expected Error() to contain body, got: %s", httpErr.Error())
	}
	if httpErr.URL != "https://api.notion.com/v1/pages/abc" {
		t.Errorf("Unexpected URL %q", httpErr.URL)
	}
}

func TestCheckResponse_BodyRewrap(t *testing.T) {
	body := `{"errors":[{"errorType":"system"}]}`
	resp := &http.Response{
		StatusCode: 500,
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	_ = CheckResponse(resp)

	got, _ := io.ReadAll(resp.Body)
	if string(got) != body {
		t.Errorf("Body not properly re-wrapped, got: %s", string(got))
	}
}

func TestStatusCode(t *testing.T) {
	err := fmt.Errorf("query: %w", &HTTPError{StatusCode: 404})
	if StatusCode(err) != 404 {
		t.Errorf("Expected 404, got %d", StatusCode(err))
	}
	if StatusCode(fmt.Errorf("plain")) != 0 {
		t.Error("Expected 0 for non-HTTP error")
	}
}

func TestTruncate(t *testing.T) {
	if truncate("hello", 10) != "hello" {
		t.Error("Short string should not be truncated")
	}

	truncated := truncate(strings.Repeat("a", 600), 500)
	if len(truncated) != 503 {
		t.Errorf("Expected length 503, got %d", len(truncated))
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Error("Truncated string should end with ...")
	}
}
