package tilt

import "github.com/prometheus/client_golang/prometheus"

var (
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tiltcheck",
		Subsystem: "tilt",
		Name:      "active_sessions",
		Help:      "Number of live monitored sessions.",
	})

	signalsClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tiltcheck",
		Subsystem: "tilt",
		Name:      "signals_total",
		Help:      "Classified signals by kind.",
	}, []string{"kind"})

	observationsDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tiltcheck",
		Subsystem: "tilt",
		Name:      "observations_discarded_total",
		Help:      "Observations that matched no classification rule.",
	})

	scoreObserved = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tiltcheck",
		Subsystem: "tilt",
		Name:      "score",
		Help:      "Tilt score after each update.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	sessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tiltcheck",
		Subsystem: "tilt",
		Name:      "sessions_evicted_total",
		Help:      "Sessions evicted by the TTL sweeper.",
	})
)

func init() {
	prometheus.MustRegister(activeSessions, signalsClassified,
		observationsDiscarded, scoreObserved, sessionsEvicted)
}
