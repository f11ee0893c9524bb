package alerts

import "github.com/prometheus/client_golang/prometheus"

var (
	alertsTriggered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tiltcheck",
		Subsystem: "alerts",
		Name:      "triggered_total",
		Help:      "Total alerts triggered by risk level.",
	}, []string{"level"})

	dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tiltcheck",
		Subsystem: "alerts",
		Name:      "dispatch_total",
		Help:      "Total adapter dispatch attempts by adapter and result.",
	}, []string{"adapter", "result"})

	dispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tiltcheck",
		Subsystem: "alerts",
		Name:      "dispatch_duration_seconds",
		Help:      "Adapter send duration in seconds.",
		Buckets:   []float64{0.005, 0.05, 0.1, 0.5, 1, 2.5, 5},
	}, []string{"adapter"})
)

func init() {
	prometheus.MustRegister(alertsTriggered, dispatchTotal, dispatchDuration)
}

// CountTriggered increments the triggered counter for a level.
// Called by the engine when an alert is created, before dispatch.
func CountTriggered(level string) {
	alertsTriggered.WithLabelValues(level).Inc()
}
