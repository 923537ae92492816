package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveFetch(OutcomeSuccess, 20*time.Millisecond)
	pr.ObserveFetch(OutcomeSuccess, 30*time.Millisecond)
	pr.ObserveFetch(OutcomeFailure, time.Millisecond)
	pr.IncCoalesced()
	pr.IncSchedulerTick()
	pr.IncSchedulerTick()
	pr.SetCachedRoots(4)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.fetchResults.WithLabelValues(OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.fetchResults.WithLabelValues(OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.coalesced), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.ticks), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(pr.cachedRoots), 0)

	expected := `
# HELP treestatus_fetch_results_total Status fetches by outcome
# TYPE treestatus_fetch_results_total counter
treestatus_fetch_results_total{outcome="failure"} 1
treestatus_fetch_results_total{outcome="success"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "treestatus_fetch_results_total"))
}

func TestPrometheusRecorderHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetCachedRoots(2)

	srv := httptest.NewServer(pr.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "treestatus_cached_roots 2")
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveFetch(OutcomeDiscarded, time.Second)
		pr.IncCoalesced()
		pr.IncSchedulerTick()
		pr.SetCachedRoots(1)
	})
}

func TestRecorderImplementations(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)
}

func TestPrometheusRecorderRegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusRecorder(reg)
	assert.Panics(t, func() { NewPrometheusRecorder(reg) }, "a second recorder collides on the same registry")
	assert.NotPanics(t, func() { NewPrometheusRecorder(prometheus.NewRegistry()) })
}
