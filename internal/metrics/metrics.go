package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contentd",
			Name:      "runs_total",
			Help:      "Count of update chain executions by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contentd",
			Name:      "stage_failures_total",
			Help:      "Stage failures recorded on run trails.",
		},
		[]string{"stage"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contentd",
			Name:      "run_duration_seconds",
			Help:      "Duration of update chain executions.",
		},
		[]string{"source"},
	)

	RegisteredProviders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "contentd",
			Name:      "registered_providers",
			Help:      "Number of content providers currently registered.",
		},
	)
)

// Register registers the contentd metrics into the default registry.
func Register() {
	prometheus.MustRegister(Runs, StageFailures, RunDuration, RegisteredProviders)
}
