package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_callbacks_total",
			Help: "Provider callbacks handled, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	checkoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_checkout_sessions_total",
			Help: "Checkout sessions requested, by result",
		},
		[]string{"result"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stripe_provider_request_duration_seconds",
			Help:    "Duration of calls to the payment provider API",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		},
		[]string{"operation", "result"},
	)

	duplicateCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_callbacks_duplicate_total",
			Help: "Callbacks whose outcome was already recorded for the session",
		},
		[]string{"endpoint"},
	)
)

// TrackCallback counts a handled callback.
func TrackCallback(endpoint, outcome string) {
	callbacks.WithLabelValues(endpoint, outcome).Inc()
}

// TrackDuplicateCallback counts a callback that did not record a transaction
// because its outcome was already recorded.
func TrackDuplicateCallback(endpoint string) {
	duplicateCallbacks.WithLabelValues(endpoint).Inc()
}

// TrackCheckoutSession counts a checkout session request.
func TrackCheckoutSession(result string) {
	checkoutSessions.WithLabelValues(result).Inc()
}

// ObserveProviderCall records the latency of one provider API call.
func ObserveProviderCall(operation string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerLatency.WithLabelValues(operation, result).Observe(time.Since(started).Seconds())
}
