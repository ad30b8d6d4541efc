// Package metrics provides Prometheus metrics for the companion core.
//
// Nothing is served over the network; the registry is exported to a
// node_exporter textfile on shutdown when configured.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the companion.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal             *prometheus.CounterVec
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
	StorageErrorsTotal     *prometheus.CounterVec
	CheckupsCompletedTotal prometheus.Counter
	CheckupScore           *prometheus.GaugeVec
	CrisisFlagsTotal       *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.TurnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_turns_total",
			Help: "Total number of user inputs handled, by route",
		},
		[]string{"route"},
	)

	m.GatewayRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_gateway_requests_total",
			Help: "Total number of model gateway calls",
		},
		[]string{"purpose", "status"},
	)

	m.GatewayRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solace_gateway_request_duration_seconds",
			Help:    "Duration of model gateway calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"purpose"},
	)

	m.StorageErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_storage_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"op"},
	)

	m.CheckupsCompletedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "solace_checkups_completed_total",
			Help: "Total number of completed checkup cycles",
		},
	)

	m.CheckupScore = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solace_checkup_score",
			Help: "Sub-scale totals of the most recent checkup",
		},
		[]string{"scale"},
	)

	m.CrisisFlagsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solace_crisis_flags_total",
			Help: "Total number of user messages flagged for support resources",
		},
		[]string{"kind"},
	)

	return m
}

// Registry returns the registry holding all metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordTurn counts a handled user input.
func (m *Metrics) RecordTurn(route string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(route).Inc()
}

// RecordGatewayCall records the outcome and latency of a model call.
func (m *Metrics) RecordGatewayCall(purpose string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GatewayRequestsTotal.WithLabelValues(purpose, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())
}

// RecordStorageError counts a failed store operation.
func (m *Metrics) RecordStorageError(op string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.WithLabelValues(op).Inc()
}

// RecordCheckup records a completed checkup cycle.
func (m *Metrics) RecordCheckup(phq, gad int) {
	if m == nil {
		return
	}
	m.CheckupsCompletedTotal.Inc()
	m.CheckupScore.WithLabelValues("phq").Set(float64(phq))
	m.CheckupScore.WithLabelValues("gad").Set(float64(gad))
}

// RecordCrisisFlag counts a flagged user message.
func (m *Metrics) RecordCrisisFlag(kind string) {
	if m == nil {
		return
	}
	m.CrisisFlagsTotal.WithLabelValues(kind).Inc()
}

// WriteTextfile exports the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
