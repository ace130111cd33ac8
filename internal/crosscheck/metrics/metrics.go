// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the cross-check engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Request outcomes by status
	Requests *prometheus.CounterVec

	// Extraction latencies by source and outcome
	SourceLatency *prometheus.HistogramVec

	// Discrepancies by field and severity
	Discrepancies *prometheus.CounterVec

	// Overall request latency
	RequestLatency prometheus.Histogram
}

// New registers the cross-check collectors with reg. Pass
// prometheus.DefaultRegisterer for process-wide metrics or a fresh registry
// in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_requests_total",
			Help: "Total cross-check requests by result status",
		}, []string{"status"}), // status: "success", "partial", "error"

		SourceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosscheck_source_duration_seconds",
			Help:    "Duration of extraction calls by source and outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source", "outcome"}),

		Discrepancies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_discrepancies_total",
			Help: "Total field discrepancies between MRZ and VLM by field and severity",
		}, []string{"field", "severity"}),

		RequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosscheck_request_duration_seconds",
			Help:    "Duration of a full cross-check including both extractions",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// IncrementRequest records a finished request.
func (m *Metrics) IncrementRequest(status string) {
	if m != nil {
		m.Requests.WithLabelValues(status).Inc()
	}
}

// ObserveSource records one extraction call. outcome is "success", "failed"
// or "timeout".
func (m *Metrics) ObserveSource(source, outcome string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source, outcome).Observe(d.Seconds())
	}
}

// IncrementDiscrepancy records one disagreeing field.
func (m *Metrics) IncrementDiscrepancy(field, severity string) {
	if m != nil {
		m.Discrepancies.WithLabelValues(field, severity).Inc()
	}
}

// ObserveRequestLatency records the end-to-end duration.
func (m *Metrics) ObserveRequestLatency(d time.Duration) {
	if m != nil {
		m.RequestLatency.Observe(d.Seconds())
	}
}
