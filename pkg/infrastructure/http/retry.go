package httputil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/healthsync/server/pkg/pacing"
)

// RetryPolicy is the bounded exponential backoff applied to rate-limited calls.
// Attempt n (0-based) is followed by a wait of BaseDelay * 2^n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       pacing.SleepFunc
}

// DefaultRetryPolicy allows three attempts waiting 2s, 4s and 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Sleep:       pacing.Sleep,
	}
}

// Delay returns the wait that follows the given failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return pacing.Sleep(ctx, d)
	}
	return p.Sleep(ctx, d)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the attempts run out.
// The last error is returned as is.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) error {
	var err error
	for attempt := 0; attempt < p.attempts(); attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		if sleepErr := p.sleep(ctx, p.Delay(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// RetryTransport re-issues requests answered with 429 Too Many Requests.
// When the attempts are exhausted the final 429 response is returned unread.
type RetryTransport struct {
	Base   http.RoundTripper
	Policy RetryPolicy
	Logger *slog.Logger
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := t.Policy.attempts()
	for attempt := 0; ; attempt++ {
		r := req
		if attempt > 0 {
			var err error
			if r, err = rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := base.RoundTrip(r)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		delay := t.Policy.Delay(attempt)
		logger.Warn("Rate limited, backing off",
			"url", req.URL.Redacted(),
			"attempt", attempt+1,
			"max_attempts", attempts,
			"delay", delay.String(),
		)

		last := attempt+1 >= attempts
		if !last {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
		}
		if err := t.Policy.sleep(req.Context(), delay); err != nil {
			if last {
				resp.Body.Close()
			}
			return nil, err
		}
		if last {
			return resp, nil
		}
	}
}

// rewind returns a copy of req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry %s %s: request body is not replayable", req.Method, req.URL.Redacted())
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}
