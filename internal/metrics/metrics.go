package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gorental",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gorental",
			Name:      "bookings_created_total",
			Help:      "Reservations successfully created.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gorental",
			Name:      "booking_conflicts_total",
			Help:      "Reservation attempts rejected for date overlap.",
		},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gorental",
			Name:      "webhook_events_total",
			Help:      "Payment gateway webhook deliveries by result.",
		},
		[]string{"result"},
	)

	reapedReservations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gorental",
			Name:      "reservations_reaped_total",
			Help:      "Stale pending reservations removed by the reaper.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingConflicts,
			webhookEvents,
			reapedReservations,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

// IncWebhookEvent records a delivery outcome: applied, duplicate,
// unmatched, invalid or error.
func IncWebhookEvent(result string) {
	webhookEvents.WithLabelValues(result).Inc()
}

func AddReaped(n int64) {
	if n > 0 {
		reapedReservations.Add(float64(n))
	}
}
