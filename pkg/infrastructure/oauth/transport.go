package oauth

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	httputil "github.com/healthsync/server/pkg/infrastructure/http"
)

// Transport is an http.RoundTripper that authenticates all requests
// using the provided TokenSource.
type Transport struct {
	// Source supplies the token to be used.
	Source TokenSource

	// Base is the base RoundTripper used to make the actual HTTP requests.
	// If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	Logger *slog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Get Token (proactive expiry check happens here)
	ctx := req.Context()
	token, err := t.Source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauth: cannot get token: %w", err)
	}

	// 2. Clone Request and Set Header
	req2 := req.Clone(ctx)
	req2.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := base.RoundTrip(req2)
	if err != nil {
		return nil, err
	}

	// 3. Reactive refresh on 401, then exactly one retry
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()

	logger.Warn("Got 401 Unauthorized, attempting force refresh", "url", req.URL.Redacted())

	token, err = t.Source.ForceRefresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauth: force refresh failed: %w", err)
	}

	req3 := req.Clone(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, fmt.Errorf("oauth: cannot replay request body for %s", req.URL.Redacted())
		}
		if req3.Body, err = req.GetBody(); err != nil {
			return nil, err
		}
	}
	req3.Header.Set("Authorization", "Bearer "+token.AccessToken)

	return base.RoundTrip(req3)
}

// LoggingTransport logs every upstream call at debug level with its status and latency.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		t.Logger.Debug("Upstream call failed", "method", req.Method, "url", req.URL.Redacted(), "duration_ms", elapsed.Milliseconds(), "error", err)
		return nil, err
	}
	t.Logger.Debug("Upstream call", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())
	return resp, nil
}

// NewClient creates an HTTP client that authenticates with source, retries
// rate-limited calls with policy and logs each call.
//
// Stack: Client -> Logging -> Retry(429) -> OAuth(401) -> base
func NewClient(source TokenSource, policy httputil.RetryPolicy, base http.RoundTripper, logger *slog.Logger) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}
	oauthTransport := &Transport{Source: source, Base: base, Logger: logger}
	retryTransport := &httputil.RetryTransport{Base: oauthTransport, Policy: policy, Logger: logger}

	return &http.Client{
		Transport: &LoggingTransport{Base: retryTransport, Logger: logger},
	}
}

// NewStaticClient is NewClient for APIs authenticated with a fixed bearer secret (Notion).
func NewStaticClient(secret string, policy httputil.RetryPolicy, base http.RoundTripper, logger *slog.Logger) *http.Client {
	return NewClient(StaticTokenSource(secret), policy, base, logger)
}
