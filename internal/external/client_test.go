package external

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suntracker/internal/types"
)

const clientTestURL = "https://upstream.example.com/data"

// noSleep keeps retry tests fast and records the waits that would have happened.
func noSleep(waits *[]time.Duration) func(time.Duration) {
	return func(d time.Duration) {
		*waits = append(*waits, d)
	}
}

func newBreakerTestClient(t *testing.T, transport *httpmock.MockTransport, retries int) (*BaseClient, *[]time.Duration) {
	t.Helper()
	var waits []time.Duration
	bc := NewBaseClient(
		&http.Client{Transport: transport},
		t.Name(), // unique breaker per test; breakers hold state across calls
		RetryPolicy{MaxRetries: retries, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond},
		"suntracker-test/1.0",
		WithSleepFunc(noSleep(&waits)),
	)
	return bc, &waits
}

func TestBaseClient_SuccessPassesThrough(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		httpmock.NewStringResponder(http.StatusOK, `{"ok": true}`))
	bc, _ := newBreakerTestClient(t, transport, 3)

	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	resp, err := bc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBaseClient_InjectsHeaders(t *testing.T) {
	transport := httpmock.NewMockTransport()
	var gotUA, gotReqID string
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			gotReqID = req.Header.Get("X-Request-ID")
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})
	bc, _ := newBreakerTestClient(t, transport, 0)

	ctx := types.WithRequestID(context.Background(), "req-abc")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	resp, err := bc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "suntracker-test/1.0", gotUA)
	assert.Equal(t, "req-abc", gotReqID)
}

func TestBaseClient_NonRetryable4xxReturnedAsIs(t *testing.T) {
	transport := httpmock.NewMockTransport()
	calls := 0
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		func(_ *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusNotFound, `{}`), nil
		})
	bc, _ := newBreakerTestClient(t, transport, 3)

	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	resp, err := bc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, calls, "4xx must not be retried")
}

func TestBaseClient_RetriesOn5xxThenFails(t *testing.T) {
	transport := httpmock.NewMockTransport()
	calls := 0
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		func(_ *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusInternalServerError, `{}`), nil
		})
	bc, waits := newBreakerTestClient(t, transport, 2)

	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	_, err = bc.Do(req)
	require.Error(t, err)

	assert.Equal(t, 3, calls, "1 attempt + 2 retries")
	assert.Len(t, *waits, 2)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
}

func TestBaseClient_RetryRecovers(t *testing.T) {
	transport := httpmock.NewMockTransport()
	calls := 0
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		func(_ *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusBadGateway, `{}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"ok": true}`), nil
		})
	bc, _ := newBreakerTestClient(t, transport, 3)

	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	resp, err := bc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestBaseClient_429MapsToRateLimited(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{}`))
	bc, _ := newBreakerTestClient(t, transport, 1)

	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	_, err = bc.Do(req)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, appErr.HTTPStatus())
}

func TestBaseClient_NetworkErrorMapsToUnavailable(t *testing.T) {
	transport := httpmock.NewMockTransport()
	// No responder registered: the transport returns a connection error.
	bc, _ := newBreakerTestClient(t, transport, 1)

	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)

	_, err = bc.Do(req)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
}

func TestBaseClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	transport := httpmock.NewMockTransport()
	calls := 0
	transport.RegisterResponder(http.MethodGet, clientTestURL,
		func(_ *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusInternalServerError, `{}`), nil
		})
	bc, _ := newBreakerTestClient(t, transport, 0)

	// Six consecutive failures trip the breaker.
	for i := 0; i < 6; i++ {
		req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
		require.NoError(t, err)
		_, err = bc.Do(req)
		require.Error(t, err)
	}
	require.Equal(t, 6, calls)

	// The breaker now rejects without touching the network.
	req, err := http.NewRequest(http.MethodGet, clientTestURL, nil)
	require.NoError(t, err)
	_, err = bc.Do(req)
	require.Error(t, err)
	assert.Equal(t, 6, calls, "open breaker must short-circuit")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErr.Code)
}

func TestComputeBackoff_RespectsRetryAfterSeconds(t *testing.T) {
	bc := NewBaseClient(
		http.DefaultClient,
		t.Name(),
		RetryPolicy{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: 5 * time.Second},
		"",
	)

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "2")

	wait := bc.computeBackoff(0, resp)
	assert.Equal(t, 2*time.Second, wait)
}

func TestComputeBackoff_RetryAfterClampedToMaxWait(t *testing.T) {
	bc := NewBaseClient(
		http.DefaultClient,
		t.Name(),
		RetryPolicy{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: 3 * time.Second},
		"",
	)

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "60")

	wait := bc.computeBackoff(0, resp)
	assert.Equal(t, 3*time.Second, wait)
}

func TestComputeBackoff_ExponentialWithinBounds(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, MinWait: 100 * time.Millisecond, MaxWait: time.Second}
	bc := NewBaseClient(http.DefaultClient, t.Name(), policy, "")

	for attempt := 0; attempt < 5; attempt++ {
		wait := bc.computeBackoff(attempt, nil)
		assert.GreaterOrEqual(t, wait, policy.MinWait, "attempt %d", attempt)
		assert.LessOrEqual(t, wait, policy.MaxWait, "attempt %d", attempt)
	}
}
