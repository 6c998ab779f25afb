// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records gateway request counts and latency. A nil *Metrics is a
// no-op.
type Metrics struct {
	requestCount   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhevm_gateway_requests_total",
				Help: "Number of gateway requests by path and status code",
			},
			[]string{"path", "code"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fhevm_gateway_request_duration_seconds",
				Help:    "Latency of gateway requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}

	registerer.MustRegister(m.requestCount)
	registerer.MustRegister(m.requestLatency)

	return &m
}

func (m *Metrics) observe(path string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, strconv.Itoa(code)).Inc()
	m.requestLatency.WithLabelValues(path).Observe(d.Seconds())
}
