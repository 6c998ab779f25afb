// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics counts adapter operations. A nil *Metrics records nothing.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhevm_operations_total",
				Help: "Number of adapter operations by outcome",
			},
			[]string{"op", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fhevm_operation_duration_seconds",
				Help:    "Duration of adapter operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"op"},
		),
	}

	registerer.MustRegister(m.operations)
	registerer.MustRegister(m.operationDuration)

	return &m
}

func (m *Metrics) observe(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}
