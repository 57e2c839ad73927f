package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "witsquest"

// Metrics holds the service collectors on a private registry.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	questCompletions   *prometheus.CounterVec
	pointsAwarded      *prometheus.CounterVec
	huntEnrollFailures prometheus.Counter
	importRuns         *prometheus.CounterVec
	importedLocations  *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		questCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quest_completions_total",
			Help:      "Quest completion attempts by result.",
		}, []string{"result"}),
		pointsAwarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points added to leaderboards by ledger method.",
		}, []string{"method"}),
		huntEnrollFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hunt_enrollment_failures_total",
			Help:      "Best-effort hunt enrollments that failed.",
		}),
		importRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_import_runs_total",
			Help:      "Store import invocations by outcome.",
		}, []string{"outcome"}),
		importedLocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_import_locations_total",
			Help:      "Imported stores by resolution (created or existing).",
		}, []string{"resolution"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) QuestCompletion(result string) {
	if m == nil {
		return
	}
	m.questCompletions.WithLabelValues(result).Inc()
}

func (m *Metrics) PointsAwarded(method string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.WithLabelValues(method).Add(float64(points))
}

func (m *Metrics) HuntEnrollFailed() {
	if m == nil {
		return
	}
	m.huntEnrollFailures.Inc()
}

func (m *Metrics) ImportRun(outcome string) {
	if m == nil {
		return
	}
	m.importRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ImportedLocations(created, existing int) {
	if m == nil {
		return
	}
	m.importedLocations.WithLabelValues("created").Add(float64(created))
	m.importedLocations.WithLabelValues("existing").Add(float64(existing))
}

func (m *Metrics) HTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
