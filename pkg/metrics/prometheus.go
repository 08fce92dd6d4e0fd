package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	updatesTotal     *prometheus.CounterVec
	aggregatesTotal  prometheus.Counter
	aggregateSize    prometheus.Gauge
	clientScalar     *prometheus.GaugeVec
	rosterSize       prometheus.Gauge
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		updatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kellymux_updates_total",
				Help: "Total number of portfolio updates processed",
			},
			[]string{"client_id"},
		),
		aggregatesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kellymux_aggregates_published_total",
				Help: "Total number of aggregates handed to the publisher",
			},
		),
		aggregateSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kellymux_aggregate_instruments",
				Help: "Number of instruments in the last published aggregate",
			},
		),
		clientScalar: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kellymux_client_kelly_scalar",
				Help: "Clamped Kelly sizing scalar applied to a client",
			},
			[]string{"client_id"},
		),
		rosterSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kellymux_registered_clients",
				Help: "Number of clients in the registry",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kellymux_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kellymux_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordUpdate records one processed portfolio update.
func (r *Recorder) RecordUpdate(clientID string) {
	r.updatesTotal.WithLabelValues(clientID).Inc()
}

// RecordAggregatePublished records one published aggregate and its size.
func (r *Recorder) RecordAggregatePublished(instruments int) {
	r.aggregatesTotal.Inc()
	r.aggregateSize.Set(float64(instruments))
}

// RecordClientScalar records the sizing scalar applied to a client.
func (r *Recorder) RecordClientScalar(clientID string, scalar float64) {
	r.clientScalar.WithLabelValues(clientID).Set(scalar)
}

// RecordRosterSize records the registry size.
func (r *Recorder) RecordRosterSize(n int) {
	r.rosterSize.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
