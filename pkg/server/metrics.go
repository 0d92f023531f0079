package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts request outcomes for the /metrics endpoint.
type Metrics struct {
	Diagnoses        *prometheus.CounterVec
	Throttled        prometheus.Counter
	NotFound         prometheus.Counter
	Refreshes        *prometheus.CounterVec
	DiagnosisSeconds prometheus.Histogram
	InventoryRecords prometheus.Gauge
}

// NewMetrics registers the rfdiag metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Diagnoses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfdiag_diagnoses_total",
				Help: "Completed diagnoses by root cause level",
			},
			[]string{"root_cause"},
		),
		Throttled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rfdiag_requests_throttled_total",
				Help: "Diagnosis requests rejected by the per-query cooldown",
			},
		),
		NotFound: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rfdiag_targets_not_found_total",
				Help: "Diagnosis requests that resolved to no inventory record",
			},
		),
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfdiag_inventory_refreshes_total",
				Help: "Inventory refresh attempts by result",
			},
			[]string{"result"},
		),
		DiagnosisSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rfdiag_diagnosis_duration_seconds",
				Help:    "Wall time of completed diagnoses",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		InventoryRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rfdiag_inventory_records",
				Help: "Records in the published inventory index",
			},
		),
	}
}
