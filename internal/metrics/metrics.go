package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StageSegments = "segments"
	StagePath     = "path"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors for segmap.
type Metrics struct {
	registry       *prometheus.Registry
	fetchesTotal   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	staleTotal     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	assetLookups   *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "segmap",
		Name:      "backend_fetches_total",
		Help:      "Backend fetches by stage and outcome",
	}, []string{"stage", "outcome"})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "segmap",
		Name:      "backend_fetch_duration_seconds",
		Help:      "Backend fetch latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})
	staleTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "segmap",
		Name:      "stale_results_total",
		Help:      "Fetch results discarded because a newer rectangle superseded them",
	}, []string{"stage"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "segmap",
		Name:      "active_sessions",
		Help:      "Number of connected map sessions",
	})
	assetLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "segmap",
		Name:      "asset_cache_lookups_total",
		Help:      "Static asset requests by cache result (hit or miss)",
	}, []string{"result"})

	registry.MustRegister(fetchesTotal, fetchDuration, staleTotal, activeSessions, assetLookups)

	return &Metrics{
		registry:       registry,
		fetchesTotal:   fetchesTotal,
		fetchDuration:  fetchDuration,
		staleTotal:     staleTotal,
		activeSessions: activeSessions,
		assetLookups:   assetLookups,
	}
}

// ObserveFetch records one backend fetch.
func (m *Metrics) ObserveFetch(stage string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchesTotal.WithLabelValues(stage, outcome).Inc()
	m.fetchDuration.WithLabelValues(stage).Observe(seconds)
}

// IncStale counts a discarded out-of-date result.
func (m *Metrics) IncStale(stage string) {
	if m == nil {
		return
	}
	m.staleTotal.WithLabelValues(stage).Inc()
}

// SetActiveSessions sets the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// IncAssetLookup counts an asset cache hit or miss.
func (m *Metrics) IncAssetLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.assetLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry. updateGauges runs before each scrape.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
