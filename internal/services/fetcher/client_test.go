package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/models"
)

func testFetcherConfig() common.FetcherConfig {
	return common.FetcherConfig{
		UserAgent:          "corpscan-test/1.0",
		Headers:            map[string]string{"Accept-Language": "en-US"},
		MaxAttempts:        3,
		RequestTimeout:     5 * time.Second,
		BackoffUnit:        time.Millisecond,
		BlockedBackoffUnit: 2 * time.Millisecond,
		RequestsPerSecond:  1000,
		Burst:              10,
		MaxBodySize:        1 << 20,
	}
}

// sequenceServer replies with the given status codes in order, repeating the last
func sequenceServer(t *testing.T, codes ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		code := codes[len(codes)-1]
		if n <= len(codes) {
			code = codes[n-1]
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = w.Write([]byte("<html><body>ok</body></html>"))
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestClient_Fetch(t *testing.T) {
	tests := []struct {
		name         string
		codes        []int
		wantStatus   models.FetchStatus
		wantAttempts int
		wantBlocked  bool
	}{
		{name: "first attempt succeeds", codes: []int{200}, wantStatus: models.FetchOK, wantAttempts: 1},
		{name: "server error then success", codes: []int{500, 200}, wantStatus: models.FetchOK, wantAttempts: 2},
		{name: "blocked then success", codes: []int{429, 403, 200}, wantStatus: models.FetchOK, wantAttempts: 3},
		{name: "persistent 403 is blocked", codes: []int{403}, wantStatus: models.FetchBlocked, wantAttempts: 3, wantBlocked: true},
		{name: "persistent 404 is http error", codes: []int{404}, wantStatus: models.FetchHTTPError, wantAttempts: 3},
		{name: "empty 200 body is retried", codes: []int{204}, wantStatus: models.FetchHTTPError, wantAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls := sequenceServer(t, tt.codes...)
			client := NewClient(testFetcherConfig(), arbor.NewLogger())

			result := client.Fetch(context.Background(), server.URL)

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			assert.Equal(t, int32(tt.wantAttempts), atomic.LoadInt32(calls))
			if tt.wantStatus == models.FetchOK {
				assert.NoError(t, result.Err)
				assert.Contains(t, result.Body, "ok")
			} else {
				assert.Error(t, result.Err)
				assert.Empty(t, result.Body)
			}
			assert.Equal(t, tt.wantBlocked, errors.Is(result.Err, ErrBlocked))
		})
	}
}

func TestClient_FetchWithHeaders(t *testing.T) {
	var gotUA, gotLang, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte("body"))
	}))
	defer server.Close()

	client := NewClient(testFetcherConfig(), arbor.NewLogger())
	result := client.FetchWith(context.Background(), server.URL, 1, map[string]string{
		"Referer":         "https://search.example/",
		"Accept-Language": "en-IN",
	})

	require.True(t, result.IsOK())
	assert.Equal(t, "corpscan-test/1.0", gotUA)
	assert.Equal(t, "en-IN", gotLang, "per-call headers override the base set")
	assert.Equal(t, "https://search.example/", gotReferer)
}

func TestClient_UserAgentRotation(t *testing.T) {
	seen := make(chan string, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("body"))
	}))
	defer server.Close()

	config := testFetcherConfig()
	config.UserAgentRotation = true
	config.UserAgents = []string{"agent-a", "agent-b"}
	client := NewClient(config, arbor.NewLogger())

	for i := 0; i < 5; i++ {
		require.True(t, client.Fetch(context.Background(), server.URL).IsOK())
		assert.Contains(t, config.UserAgents, <-seen)
	}
}

func TestClient_CancelDuringBackoff(t *testing.T) {
	server, calls := sequenceServer(t, 503)

	config := testFetcherConfig()
	config.BackoffUnit = time.Minute
	client := NewClient(config, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := client.Fetch(ctx, server.URL)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, models.FetchNetworkError, result.Status)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Empty(t, result.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	config := testFetcherConfig()
	config.MaxAttempts = 2
	client := NewClient(config, arbor.NewLogger())

	result := client.Fetch(context.Background(), url)

	assert.Equal(t, models.FetchNetworkError, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, models.FailureNetwork, result.Failure().Kind)
}

func TestBackoffPolicy_Delay(t *testing.T) {
	policy := BackoffPolicy{Unit: 5 * time.Second, BlockedUnit: 10 * time.Second, Jitter: 2 * time.Second}

	tests := []struct {
		attempt int
		blocked bool
		min     time.Duration
	}{
		{attempt: 1, blocked: false, min: 5 * time.Second},
		{attempt: 2, blocked: false, min: 10 * time.Second},
		{attempt: 1, blocked: true, min: 10 * time.Second},
		{attempt: 3, blocked: true, min: 30 * time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			d := policy.Delay(tt.attempt, tt.blocked)
			assert.GreaterOrEqual(t, d, tt.min)
			assert.Less(t, d, tt.min+policy.Jitter)
		}
	}

	assert.Equal(t, 3*time.Second, BackoffPolicy{Unit: time.Second}.Delay(3, false))
}
