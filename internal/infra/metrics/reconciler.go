package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcilerRuns,
		reconcilerAttemptsChecked,
	)
}

var (
	reconcilerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_runs_total",
			Help: "Background reconciler sweeps by outcome (ok/skipped/error).",
		},
		[]string{"outcome"},
	)

	reconcilerAttemptsChecked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_attempts_checked_total",
			Help: "Stale pending attempts re-checked against the gateway.",
		},
	)
)

func IncReconcilerRun(outcome string) {
	reconcilerRuns.WithLabelValues(norm(outcome)).Inc()
}

func AddReconcilerAttemptsChecked(n int) {
	reconcilerAttemptsChecked.Add(float64(n))
}
