package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	connectionsActive prometheus.Gauge
	sessionsAuthed    prometheus.Gauge
	framesSent        *prometheus.CounterVec
	framesDropped     prometheus.Counter
	providerErrors    *prometheus.CounterVec
	heartbeatTimeouts prometheus.Counter
	resolveLatency    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		connectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quotepulse_connections_active",
				Help: "Current number of open client connections",
			},
		),
		sessionsAuthed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quotepulse_sessions_authenticated",
				Help: "Current number of authenticated sessions",
			},
		),
		framesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotepulse_frames_sent_total",
				Help: "Total market data frames pushed to clients",
			},
			[]string{"source"},
		),
		framesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quotepulse_frames_dropped_total",
				Help: "Frames dropped due to slow clients",
			},
		),
		providerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotepulse_provider_errors_total",
				Help: "Upstream data-source failures by provider tier",
			},
			[]string{"provider"},
		),
		heartbeatTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "quotepulse_heartbeat_timeouts_total",
				Help: "Sessions closed after missing heartbeats",
			},
		),
		resolveLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotepulse_resolve_duration_seconds",
				Help:    "Quote resolution latency by serving tier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

// ConnectionOpened increments the active connection gauge.
func (r *Recorder) ConnectionOpened() {
	r.connectionsActive.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (r *Recorder) ConnectionClosed() {
	r.connectionsActive.Dec()
}

// SessionAuthenticated increments the authenticated session gauge.
func (r *Recorder) SessionAuthenticated() {
	r.sessionsAuthed.Inc()
}

// SessionRemoved decrements the authenticated session gauge.
func (r *Recorder) SessionRemoved() {
	r.sessionsAuthed.Dec()
}

// RecordFrameSent records a frame pushed to a client, labeled by data source.
func (r *Recorder) RecordFrameSent(source string) {
	r.framesSent.WithLabelValues(source).Inc()
}

// RecordFrameDropped records a frame dropped on backpressure.
func (r *Recorder) RecordFrameDropped() {
	r.framesDropped.Inc()
}

// RecordProviderError records an upstream tier failure.
func (r *Recorder) RecordProviderError(provider string) {
	r.providerErrors.WithLabelValues(provider).Inc()
}

// RecordHeartbeatTimeout records a session closed for missed heartbeats.
func (r *Recorder) RecordHeartbeatTimeout() {
	r.heartbeatTimeouts.Inc()
}

// RecordResolveLatency records quote resolution latency in seconds.
func (r *Recorder) RecordResolveLatency(source string, seconds float64) {
	r.resolveLatency.WithLabelValues(source).Observe(seconds)
}
