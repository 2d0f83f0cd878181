package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for HTTP and realtime traffic.
type Metrics struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	wsClients       prometheus.Gauge
	framesDelivered *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_errors_total",
			Help: "HTTP errors by route, method and domain code.",
		}, []string{"path", "method", "code"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campus_realtime_clients",
			Help: "Currently connected realtime clients.",
		}),
		framesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_realtime_frames_delivered_total",
			Help: "Event frames enqueued to realtime clients.",
		}, []string{"event"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_realtime_frames_dropped_total",
			Help: "Event frames dropped because a client buffer was full.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.requests, m.latency, m.errors, m.wsClients, m.framesDelivered, m.framesDropped)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// ClientConnected tracks a realtime connection opening.
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

// ClientDisconnected tracks a realtime connection closing.
func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}

// RecordFanout counts delivered and dropped frames for one broadcast.
func (m *Metrics) RecordFanout(event string, delivered, dropped int) {
	if m == nil {
		return
	}
	if delivered > 0 {
		m.framesDelivered.WithLabelValues(event).Add(float64(delivered))
	}
	if dropped > 0 {
		m.framesDropped.WithLabelValues(event).Add(float64(dropped))
	}
}
