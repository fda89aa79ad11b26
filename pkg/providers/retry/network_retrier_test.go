package retry

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
)

func newTestRetrier(maxRetries int, delays *[]time.Duration) *NetworkRetrier {
	nr := NewNetworkRetrier(DefaultRetryConfig().WithMaxRetries(maxRetries))
	nr.sleep = func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return ctx.Err()
	}
	return nr
}

func TestExecuteWithRetryStatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int
		wantCode  int
	}{
		{"success first try", []int{200}, 1, 200},
		{"server error then success", []int{503, 502, 200}, 3, 200},
		{"rate limited then success", []int{429, 200}, 2, 200},
		{"client error is not retried", []int{400, 200}, 1, 400},
		{"exhausted returns last response", []int{500, 500, 500}, 3, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statuses[int(n)-1])
			}))
			defer srv.Close()

			client := newTestRetrier(2, nil).WrapHTTPClient(srv.Client())
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			require.NoError(t, err)

			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, int32(tt.wantCalls), atomic.LoadInt32(&calls))
		})
	}
}

func TestExecuteWithRetryReplaysBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestRetrier(3, nil).WrapHTTPClient(srv.Client())
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"q":"Hello @0@"}`))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{`{"q":"Hello @0@"}`, `{"q":"Hello @0@"}`}, bodies)
}

func TestExecuteWithRetryBackoff(t *testing.T) {
	var delays []time.Duration
	nr := newTestRetrier(3, &delays)

	_, err := nr.ExecuteWithRetry(context.Background(), func() (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	require.Error(t, err)

	assert.Equal(t, []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}, delays)
}

func TestExecuteWithRetryHonoursRetryAfter(t *testing.T) {
	var delays []time.Duration
	nr := newTestRetrier(1, &delays)

	attempts := 0
	resp, err := nr.ExecuteWithRetry(context.Background(), func() (*http.Response, error) {
		attempts++
		rec := httptest.NewRecorder()
		if attempts == 1 {
			rec.Header().Set("Retry-After", "5")
			rec.WriteHeader(http.StatusTooManyRequests)
		} else {
			rec.WriteHeader(http.StatusOK)
		}
		return rec.Result(), nil
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []time.Duration{5 * time.Second}, delays)
}

func TestExecuteWithRetryPermanentError(t *testing.T) {
	nr := newTestRetrier(3, nil)

	attempts := 0
	_, err := nr.ExecuteWithRetry(context.Background(), func() (*http.Response, error) {
		attempts++
		return nil, errors.New("invalid api key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetryCanceledContext(t *testing.T) {
	nr := newTestRetrier(3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := nr.ExecuteWithRetry(ctx, func() (*http.Response, error) {
		t.Fatal("request must not be sent")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelayCapped(t *testing.T) {
	nr := NewNetworkRetrier(RetryConfig{
		InitialDelay:  time.Second,
		MaxDelay:      3 * time.Second,
		BackoffFactor: 2,
	})

	assert.Equal(t, time.Second, nr.calculateDelay(false, 0))
	assert.Equal(t, 2*time.Second, nr.calculateDelay(false, 1))
	assert.Equal(t, 3*time.Second, nr.calculateDelay(false, 5))
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, IsNetworkError(nil))
	assert.False(t, IsNetworkError(context.Canceled))
	assert.True(t, IsNetworkError(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsNetworkError(errors.New("unexpected EOF")))
	assert.False(t, IsNetworkError(errors.New("quota exceeded")))
}
