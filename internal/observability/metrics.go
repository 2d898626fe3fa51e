package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// gateway, session, and report submission paths.
type Metrics struct {
	// Record store round-trips.
	StoreRequests        *prometheus.CounterVec   // labels: table, op={select,insert,update,delete}, outcome={success,error}
	StoreRequestDuration *prometheus.HistogramVec // labels: table, op

	// Hosted auth provider round-trips.
	AuthRequests *prometheus.CounterVec // labels: op={signin,signup,signout,user}, outcome={success,error}

	// Report submission saga.
	ReportsSubmitted prometheus.Counter
	SubmitFailures   *prometheus.CounterVec // labels: step={validate,report,eco_stat,profile}
	Compensations    *prometheus.CounterVec // labels: step={eco_stat,report}, outcome={success,error}

	// Session lifecycle.
	SessionEvents  *prometheus.CounterVec // labels: event={signed_in,signed_out,refreshed}
	ActiveSessions prometheus.Gauge

	// Weather banner lookups.
	WeatherLookups *prometheus.CounterVec // labels: outcome={success,error,static}
	WeatherCache   *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StoreRequests,
		m.StoreRequestDuration,
		m.AuthRequests,
		m.ReportsSubmitted,
		m.SubmitFailures,
		m.Compensations,
		m.SessionEvents,
		m.ActiveSessions,
		m.WeatherLookups,
		m.WeatherCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "store_requests_total",
			Help:      "Record store round-trips by table, operation, and outcome.",
		}, []string{"table", "op", "outcome"}),
		StoreRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rainroute",
			Name:      "store_request_duration_seconds",
			Help:      "Record store request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"table", "op"}),
		AuthRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "auth_requests_total",
			Help:      "Hosted auth provider requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "reports_submitted_total",
			Help:      "Road reports accepted end to end, eco credit included.",
		}),
		SubmitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "submit_failures_total",
			Help:      "Report submissions aborted, by failing step.",
		}, []string{"step"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "submit_compensations_total",
			Help:      "Compensating deletes run after a partial submission, by step and outcome.",
		}, []string{"step", "outcome"}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "session_events_total",
			Help:      "Session state transitions by event kind.",
		}, []string{"event"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainroute",
			Name:      "active_sessions",
			Help:      "Sessions currently held by the session store.",
		}),
		WeatherLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "weather_lookups_total",
			Help:      "Weather provider lookups by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainroute",
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
	}
}
