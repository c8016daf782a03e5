package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	launchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "launch",
			Name:      "runs_total",
			Help:      "Transformation runs by outcome.",
		},
		[]string{"outcome"},
	)
	launchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xformctl",
			Subsystem: "launch",
			Name:      "run_duration_seconds",
			Help:      "Transformation run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	schemaResolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "schema",
			Name:      "resolve_total",
			Help:      "Schema namespace resolutions by cache result.",
		},
		[]string{"result"},
	)
	codecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Graph encode/decode operations by outcome.",
		},
		[]string{"op", "outcome"},
	)
)

// Run outcomes recorded by the launcher.
const (
	OutcomeOK            = "ok"
	OutcomeConfiguration = "configuration_error"
	OutcomeSchema        = "schema_error"
	OutcomeGraph         = "graph_error"
	OutcomeModule        = "module_error"
	OutcomeExecution     = "execution_error"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(launchRuns, launchDuration, schemaResolves, codecOps)
	})
}

func RecordRun(outcome string, duration time.Duration) {
	RegisterMetrics()
	launchRuns.WithLabelValues(outcome).Inc()
	launchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordSchemaResolve(hit bool) {
	RegisterMetrics()
	result := "miss"
	if hit {
		result = "hit"
	}
	schemaResolves.WithLabelValues(result).Inc()
}

func RecordCodec(op string, err error) {
	RegisterMetrics()
	outcome := OutcomeOK
	if err != nil {
		outcome = "error"
	}
	codecOps.WithLabelValues(op, outcome).Inc()
}
