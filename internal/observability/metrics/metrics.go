package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics exposes counters/histograms for calls to the telemedicine backend.
type BackendMetrics struct {
	requestsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total backend REST calls by route and status code (0 = transport error)",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of backend REST calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.latency)
	return m
}

// ObserveBackendCall records one backend round trip.
func (m *BackendMetrics) ObserveBackendCall(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(seconds)
}

// PortalMetrics exposes counters for session and widget activity.
type PortalMetrics struct {
	authTotal          *prometheus.CounterVec
	symptomChecks      *prometheus.CounterVec
	notificationPushes prometheus.Counter
	liveSubscribers    prometheus.Gauge
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "session",
			Name:      "auth_events_total",
			Help:      "Session lifecycle events (login, register, restore, logout) by outcome",
		}, []string{"event", "outcome"}),
		symptomChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "symptoms",
			Name:      "checks_total",
			Help:      "Symptom checks submitted by severity and emergency flag",
		}, []string{"severity", "emergency"}),
		notificationPushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "notifications",
			Name:      "pushes_total",
			Help:      "Unread-count updates pushed over websocket",
		}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "notifications",
			Name:      "subscribers",
			Help:      "Open notification websocket subscriptions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.authTotal, m.symptomChecks, m.notificationPushes, m.liveSubscribers)
	return m
}

func (m *PortalMetrics) ObserveAuth(event string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.authTotal.WithLabelValues(event, outcome).Inc()
}

func (m *PortalMetrics) ObserveSymptomCheck(severity string, emergency bool) {
	if m == nil {
		return
	}
	m.symptomChecks.WithLabelValues(severity, strconv.FormatBool(emergency)).Inc()
}

func (m *PortalMetrics) ObservePush() {
	if m == nil {
		return
	}
	m.notificationPushes.Inc()
}

func (m *PortalMetrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.liveSubscribers.Inc()
}

func (m *PortalMetrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.liveSubscribers.Dec()
}
