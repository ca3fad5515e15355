// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No ids in labels: operation is the route template name.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "physio_backend_requests_total",
		Help: "Backend REST calls, by operation and outcome (2xx, 4xx, 5xx, transport).",
	}, []string{"operation", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "physio_backend_request_duration_seconds",
		Help:    "Backend REST call latency, by operation.",
		Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})
)

func outcome(status int) string {
	switch {
	case status == 0:
		return "transport"
	case status < 300:
		return "2xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
