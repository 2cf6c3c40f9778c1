// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfsync_gateway_requests_total",
		Help: "Total gateway requests by method and result class",
	}, []string{"method", "class"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shelfsync_gateway_request_duration_seconds",
		Help:    "Gateway request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"method"})
)

func recordRequest(method, class string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(method, class).Inc()
	requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
