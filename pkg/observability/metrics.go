package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomePartial = "partial"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	fieldReads  *prometheus.CounterVec
	fieldWrites *prometheus.CounterVec
	modelWrites *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fieldReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposer_field_reads_total",
				Help: "Total number of field reads",
			},
			[]string{"model", "path"},
		),
		fieldWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposer_field_writes_total",
				Help: "Total number of field writes by outcome",
			},
			[]string{"model", "path", "outcome"},
		),
		modelWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exposer_model_writes_total",
				Help: "Total number of whole-model writes by outcome",
			},
			[]string{"model", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exposer_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	for _, c := range []prometheus.Collector{m.fieldReads, m.fieldWrites, m.modelWrites, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FieldRead counts a read of model/path.
func (m *Metrics) FieldRead(model, path string) {
	if m == nil {
		return
	}
	m.fieldReads.WithLabelValues(model, path).Inc()
}

// FieldWrite counts a write attempt of model/path.
func (m *Metrics) FieldWrite(model, path, outcome string) {
	if m == nil {
		return
	}
	m.fieldWrites.WithLabelValues(model, path, outcome).Inc()
}

// ModelWrite counts a whole-model write.
func (m *Metrics) ModelWrite(model, outcome string) {
	if m == nil {
		return
	}
	m.modelWrites.WithLabelValues(model, outcome).Inc()
}

// ObserveRequest records the duration of one request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
