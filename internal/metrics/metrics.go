// Package metrics exports distribution engine activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/ir"
)

const namespace = "fairseed"

// Recorder implements engine.Observer and keeps its metrics in a private
// registry, so several recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	events           *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	phase            *prometheus.GaugeVec
	minted           *prometheus.GaugeVec
	guardianDeadline *prometheus.GaugeVec
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Count of committed journal events by type.",
			},
			[]string{"type"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Count of rejected operations by operation and error code.",
			},
			[]string{"operation", "code"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "phase",
				Help:      "Current lifecycle phase of a distribution (1=active through 6=finalized_fallback).",
			},
			[]string{"distribution"},
		),
		minted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "minted_units",
				Help:      "Units minted so far in a distribution.",
			},
			[]string{"distribution"},
		),
		guardianDeadline: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "guardian_deadline_seconds",
				Help:      "Unix time at which the guardian window of a distribution closes.",
			},
			[]string{"distribution"},
		),
	}
	r.registry.MustRegister(r.events, r.rejections, r.phase, r.minted, r.guardianDeadline)
	return r
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// StateChanged implements engine.Observer.
func (r *Recorder) StateChanged(distributionID string, events []ir.Event, state engine.State) {
	for _, e := range events {
		r.events.WithLabelValues(string(e.Type)).Inc()
	}
	r.phase.WithLabelValues(distributionID).Set(float64(state.Phase))
	r.minted.WithLabelValues(distributionID).Set(float64(state.MintedCount))
	if !state.GuardianDeadline.IsZero() {
		r.guardianDeadline.WithLabelValues(distributionID).Set(float64(state.GuardianDeadline.Unix()))
	}
}

// OperationRejected implements engine.Observer.
func (r *Recorder) OperationRejected(distributionID string, op engine.Operation, code engine.ErrorCode) {
	r.rejections.WithLabelValues(string(op), string(code)).Inc()
}
