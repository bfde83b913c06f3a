// Package metrics exposes Prometheus counters and histograms for
// association lifecycle events and DIMSE operation outcomes, registered
// against a private prometheus.Registry owned by the Application Entity
// and exported by package httpadmin.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the metrics an AE records over its lifetime together
// with the prometheus.Registry they are registered against.
type Registry struct {
	reg *prometheus.Registry

	associationsTotal   *prometheus.CounterVec
	activeAssociations  prometheus.Gauge
	dimseOperationsTotal *prometheus.CounterVec
	dimseDuration       *prometheus.HistogramVec
}

// NewRegistry builds a fresh Registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		reg: reg,
		associationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netdicom_associations_total",
				Help: "Total associations by outcome (accepted, rejected, aborted, released).",
			},
			[]string{"outcome"},
		),
		activeAssociations: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "netdicom_active_associations",
				Help: "Number of associations currently established.",
			},
		),
		dimseOperationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netdicom_dimse_operations_total",
				Help: "Total DIMSE operations by command and status category.",
			},
			[]string{"command", "category"},
		),
		dimseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netdicom_dimse_operation_duration_seconds",
				Help:    "DIMSE operation duration in seconds, by command.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
	}
}

// Registerer exposes the underlying prometheus.Registry for httpadmin's
// promhttp.HandlerFor call.
func (r *Registry) Registerer() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// AssociationOutcome increments the associations counter for outcome,
// one of "accepted", "rejected", "aborted", "released".
func (r *Registry) AssociationOutcome(outcome string) {
	if r == nil {
		return
	}
	r.associationsTotal.WithLabelValues(outcome).Inc()
}

// AssociationStarted/AssociationEnded track the live association gauge.
func (r *Registry) AssociationStarted() {
	if r == nil {
		return
	}
	r.activeAssociations.Inc()
}

func (r *Registry) AssociationEnded() {
	if r == nil {
		return
	}
	r.activeAssociations.Dec()
}

// DIMSEOperation records one completed DIMSE operation's outcome category
// and wall-clock duration.
func (r *Registry) DIMSEOperation(command, category string, duration time.Duration) {
	if r == nil {
		return
	}
	r.dimseOperationsTotal.WithLabelValues(command, category).Inc()
	r.dimseDuration.WithLabelValues(command).Observe(duration.Seconds())
}
