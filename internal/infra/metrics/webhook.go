package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookRequests,
		webhookDuration,
	)
}

var (
	// result: processed|ignored|test|error
	// reason (error only): bad_json|missing_user|no_plans|gateway|db|unknown
	webhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Count of payment webhook deliveries by result and reason.",
		},
		[]string{"result", "reason"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Duration of the payment webhook handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)

func IncWebhook(result, reason string) {
	webhookRequests.WithLabelValues(norm(result), norm(reason)).Inc()
}

func ObserveWebhookDuration(result string, seconds float64) {
	webhookDuration.WithLabelValues(norm(result)).Observe(seconds)
}
