package fleet

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/all-smi/all-smi/internal/config"
	allsmihttp "github.com/all-smi/all-smi/internal/http"
)

func testFleetConfig() config.FleetConfig {
	cfg := config.DefaultFleetConfig()
	cfg.CycleDeadline = 2 * time.Second
	cfg.PerRequestTimeout = time.Second
	cfg.RetryBaseDelay = 10 * time.Millisecond
	cfg.StaggerWindow = 20 * time.Millisecond
	return cfg
}

func TestNormalizeHost(t *testing.T) {
	testcases := []struct{ in, want string }{
		{"node1:9090", "node1:9090"},
		{"http://node1:9090", "node1:9090"},
		{"https://node1:9090/metrics", "node1:9090"},
		{"  node2  ", "node2"},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.want, NormalizeHost(tc.in))
	}
}

func TestMetricsURL(t *testing.T) {
	assert.Equal(t, "http://node1:9090/metrics", MetricsURL("node1:9090"))
	assert.Equal(t, "http://node1:9090/metrics", MetricsURL("http://node1:9090"))
}

func TestStaggerSpreadsWithinWindow(t *testing.T) {
	window := 500 * time.Millisecond
	var prev time.Duration = -1
	for i := 0; i < 10; i++ {
		d := stagger(i, 10, window)
		assert.Greater(t, d, prev)
		assert.Less(t, d, window)
		prev = d
	}
	assert.Zero(t, stagger(0, 1, window))
}

func TestFetchAllCollectsBodies(t *testing.T) {
	ts1 := allsmihttp.TestServer(t, http.StatusOK, "body-one")
	defer ts1.Close()
	ts2 := allsmihttp.TestServer(t, http.StatusOK, "body-two")
	defer ts2.Close()

	f := NewFetcher(testFleetConfig())
	hosts := []string{ts1.URL, ts2.URL}

	got := make(map[string]Outcome)
	for o := range f.FetchAll(context.Background(), hosts) {
		got[o.HostID] = o
	}

	require.Len(t, got, 2)
	for _, h := range hosts {
		o := got[HostID(h)]
		require.NoError(t, o.Err)
		assert.NotEmpty(t, o.Body)
	}
}

func TestFetchAllReportsFailures(t *testing.T) {
	ts := allsmihttp.TestServer(t, http.StatusInternalServerError, "")
	defer ts.Close()

	f := NewFetcher(testFleetConfig())

	var outcomes []Outcome
	for o := range f.FetchAll(context.Background(), []string{ts.URL, "127.0.0.1:1"}) {
		outcomes = append(outcomes, o)
	}

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Error(t, o.Err)
	}
}

func TestFetchAllSlowPeerDoesNotBlockDeadline(t *testing.T) {
	fast := allsmihttp.TestServer(t, http.StatusOK, "fast")
	defer fast.Close()
	slow := allsmihttp.TestSlowServer(t, 5*time.Second, "slow")
	defer slow.Close()

	cfg := testFleetConfig()
	cfg.PerRequestTimeout = 10 * time.Second
	cfg.RetryCount = 1
	f := NewFetcher(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	var got []Outcome
	for o := range f.FetchAll(ctx, []string{fast.URL, slow.URL}) {
		got = append(got, o)
		if len(got) == 1 {
			// The fast peer must arrive well before the deadline.
			assert.Less(t, time.Since(start), 400*time.Millisecond)
		}
	}

	assert.LessOrEqual(t, time.Since(start), time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, HostID(fast.URL), got[0].HostID)
}

func TestFetchWithRetryEventuallyGivesUp(t *testing.T) {
	cfg := testFleetConfig()
	cfg.RetryCount = 3
	f := NewFetcher(cfg)

	start := time.Now()
	_, err := f.fetchWithRetry(context.Background(), "http://127.0.0.1:1/metrics")
	assert.Error(t, err)
	// Two backoff sleeps: base + 2*base.
	assert.GreaterOrEqual(t, time.Since(start), 3*cfg.RetryBaseDelay)
}
