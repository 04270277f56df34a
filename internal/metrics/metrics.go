package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "booking_transitions_total",
			Help:      "Count of booking status transitions.",
		},
		[]string{"from", "to"},
	)

	paymentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "payment_outcomes_total",
			Help:      "Count of payment outcomes applied, by source (return, verify) and outcome.",
		},
		[]string{"source", "outcome"},
	)

	signatureMismatch = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "payment_signature_mismatch_total",
			Help:      "Count of payment callbacks rejected for a bad signature.",
		},
	)

	notificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "notifications_failed_total",
			Help:      "Count of notifications that could not be delivered.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingTransitions, paymentOutcomes, signatureMismatch, notificationsFailed)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveTransition(from, to string) {
	bookingTransitions.WithLabelValues(from, to).Inc()
}

func ObservePaymentOutcome(source, outcome string) {
	paymentOutcomes.WithLabelValues(source, outcome).Inc()
}

func IncSignatureMismatch() {
	signatureMismatch.Inc()
}

func IncNotificationFailed() {
	notificationsFailed.Inc()
}
