package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	AppointmentsBooked  prometheus.Counter
	AppointmentStatuses *prometheus.CounterVec
	QueueCheckIns       prometheus.Counter
	QueueCalls          *prometheus.CounterVec
	LockWaitSeconds     prometheus.Histogram
	HTTPRequests        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AppointmentsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicq",
			Name:      "appointments_booked_total",
			Help:      "Appointments successfully booked.",
		}),
		AppointmentStatuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicq",
			Name:      "appointment_status_changes_total",
			Help:      "Appointment status changes by target status.",
		}, []string{"status"}),
		QueueCheckIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicq",
			Name:      "queue_check_ins_total",
			Help:      "Patients that joined a doctor's queue.",
		}),
		QueueCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicq",
			Name:      "queue_call_next_total",
			Help:      "Call-next attempts by outcome.",
		}, []string{"outcome"}),
		LockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicq",
			Name:      "queue_lock_wait_seconds",
			Help:      "Time spent waiting for the per-doctor-day lock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicq",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AppointmentsBooked,
		m.AppointmentStatuses,
		m.QueueCheckIns,
		m.QueueCalls,
		m.LockWaitSeconds,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts every request passing through the router
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.HTTPRequests, next)
}

// The Observe helpers are no-ops on a nil *Metrics.

func (m *Metrics) ObserveBooking() {
	if m != nil {
		m.AppointmentsBooked.Inc()
	}
}

func (m *Metrics) ObserveStatus(status string) {
	if m != nil {
		m.AppointmentStatuses.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveCheckIn() {
	if m != nil {
		m.QueueCheckIns.Inc()
	}
}

func (m *Metrics) ObserveCallNext(outcome string) {
	if m != nil {
		m.QueueCalls.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWaitSeconds.Observe(d.Seconds())
	}
}
