package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	fetchDuration *prom.HistogramVec
	fetchResults  *prom.CounterVec
	coalesced     prom.Counter
	ticks         prom.Counter
	cachedRoots   prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg, or
// on a fresh registry when reg is nil. Each registry takes one recorder.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.fetchDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "treestatus",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of git status invocations",
		Buckets:   prom.DefBuckets,
	}, []string{"outcome"})
	pr.fetchResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "treestatus",
		Name:      "fetch_results_total",
		Help:      "Status fetches by outcome",
	}, []string{"outcome"})
	pr.coalesced = prom.NewCounter(prom.CounterOpts{
		Namespace: "treestatus",
		Name:      "fetch_coalesced_total",
		Help:      "Fetch requests folded into an already queued run",
	})
	pr.ticks = prom.NewCounter(prom.CounterOpts{
		Namespace: "treestatus",
		Name:      "scheduler_ticks_total",
		Help:      "Periodic refresh ticks",
	})
	pr.cachedRoots = prom.NewGauge(prom.GaugeOpts{
		Namespace: "treestatus",
		Name:      "cached_roots",
		Help:      "Repository roots currently held in the status cache",
	})
	reg.MustRegister(pr.fetchDuration, pr.fetchResults, pr.coalesced, pr.ticks, pr.cachedRoots)
	return pr
}

func (p *PrometheusRecorder) ObserveFetch(outcome string, d time.Duration) {
	if p == nil || p.fetchResults == nil {
		return
	}
	p.fetchResults.WithLabelValues(outcome).Inc()
	p.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCoalesced() {
	if p == nil || p.coalesced == nil {
		return
	}
	p.coalesced.Inc()
}

func (p *PrometheusRecorder) IncSchedulerTick() {
	if p == nil || p.ticks == nil {
		return
	}
	p.ticks.Inc()
}

func (p *PrometheusRecorder) SetCachedRoots(n int) {
	if p == nil || p.cachedRoots == nil {
		return
	}
	p.cachedRoots.Set(float64(n))
}

// Handler serves the recorder's registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
