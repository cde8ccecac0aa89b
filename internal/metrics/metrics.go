package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sportbook",
			Name:      "booking_created_total",
			Help:      "Count of bookings created, by resulting status.",
		},
		[]string{"status"},
	)

	adminDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sportbook",
			Name:      "admin_decision_total",
			Help:      "Count of admin decisions over pending bookings.",
		},
		[]string{"decision"},
	)

	slotsBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sportbook",
			Name:      "slots_blocked_total",
			Help:      "Count of blocked-slot intervals created by admins.",
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sportbook",
			Name:      "api_requests_total",
			Help:      "Count of backend API requests by outcome.",
		},
		[]string{"outcome"},
	)

	calendarRenders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sportbook",
			Name:      "calendar_renders_total",
			Help:      "Count of week grids rendered for users.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, adminDecision, slotsBlocked,
			apiRequests, calendarRenders)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncAdminDecision(decision string) {
	adminDecision.WithLabelValues(decision).Inc()
}

func AddSlotsBlocked(n int) {
	slotsBlocked.Add(float64(n))
}

func IncAPIRequest(outcome string) {
	apiRequests.WithLabelValues(outcome).Inc()
}

func IncCalendarRender() {
	calendarRenders.Inc()
}
