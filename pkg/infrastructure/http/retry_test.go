package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/server/pkg/pacing"
)

func TestRetryTransport_ThreeRateLimits(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"errors":[{"errorType":"request"}]}`)
	}))
	defer srv.Close()

	rec := &pacing.Recorder{}
	policy := DefaultRetryPolicy()
	policy.Sleep = rec.Sleep
	client := &http.Client{Transport: &RetryTransport{Policy: policy}}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.Delays)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "errorType")
}

func TestRetryTransport_RecoversAfterRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	rec := &pacing.Recorder{}
	policy := DefaultRetryPolicy()
	policy.Sleep = rec.Sleep
	client := &http.Client{Transport: &RetryTransport{Policy: policy}}

	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"a":1}`, string(body), "body must be replayed on retry")
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.Delays)
}

func TestRetryTransport_OtherStatusNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &RetryTransport{Policy: DefaultRetryPolicy()}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRetryPolicy_Do(t *testing.T) {
	errBusy := errors.New("busy")
	rec := &pacing.Recorder{}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: rec.Sleep}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	}, func(err error) bool { return errors.Is(err, errBusy) })

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Delays)
}

func TestRetryPolicy_Do_NonRetryable(t *testing.T) {
	errFatal := errors.New("fatal")
	calls := 0
	err := DefaultRetryPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFatal
	}, func(error) bool { return false })

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}
