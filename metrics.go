package mydb

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for database traffic. A nil
// *Metrics records nothing.
type Metrics struct {
	executions   *prometheus.CounterVec
	released     prometheus.Counter
	payloadBytes prometheus.Histogram
	openHandles  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mydb_executions_total",
			Help: "Commands executed, by outcome.",
		}, []string{"outcome"}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mydb_buffers_released_total",
			Help: "Engine payload buffers returned to the engine allocator.",
		}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mydb_payload_bytes",
			Help:    "Size of engine payloads.",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		}),
		openHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mydb_open_handles",
			Help: "Database handles currently open.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.executions, m.released, m.payloadBytes, m.openHandles)
	}
	return m
}

func (m *Metrics) observe(result *Result) {
	if m == nil {
		return
	}
	switch {
	case !result.OK():
		m.executions.WithLabelValues("error").Inc()
	case result.NoContent():
		m.executions.WithLabelValues("no_content").Inc()
	default:
		m.executions.WithLabelValues("ok").Inc()
	}
	if !result.NoContent() {
		m.payloadBytes.Observe(float64(len(result.raw)))
	}
}

func (m *Metrics) bufferReleased() {
	if m != nil {
		m.released.Inc()
	}
}

func (m *Metrics) handleOpened() {
	if m != nil {
		m.openHandles.Inc()
	}
}

func (m *Metrics) handleClosed() {
	if m != nil {
		m.openHandles.Dec()
	}
}
