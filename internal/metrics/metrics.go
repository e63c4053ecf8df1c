package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innata_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innata_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innata_bookings_total",
			Help: "Total number of committed reservations",
		},
		[]string{"status", "credit_source"},
	)

	BookingRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innata_booking_rejections_total",
			Help: "Booking attempts rejected, by reason code",
		},
		[]string{"reason"},
	)

	WaitlistEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "innata_waitlist_entries_total",
			Help: "Total number of waitlist entries created",
		},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "innata_booking_cancellations_total",
			Help: "Total number of reservation cancellations",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innata_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "innata_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	SettingsRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "innata_settings_refreshes_total",
			Help: "Number of times the settings snapshot was reloaded from storage",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status, creditSource string) {
	BookingsTotal.WithLabelValues(status, creditSource).Inc()
}

func RecordBookingRejection(reason string) {
	BookingRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordWaitlistEntry() {
	WaitlistEntriesTotal.Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordSettingsRefresh() {
	SettingsRefreshesTotal.Inc()
}
