// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("shelfsync.cache")

const (
	tierMemory = "memory"
	tierDisk   = "disk"
)

var (
	hitCounter  metric.Int64Counter
	missCounter metric.Int64Counter
	putCounter  metric.Int64Counter
	getLatency  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes instruments lazily. Safe to call repeatedly;
// a failure disables recording rather than breaking cache operations.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		hitCounter, err = meter.Int64Counter(
			"cache_hits_total",
			metric.WithDescription("Cache hits by tier"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		missCounter, err = meter.Int64Counter(
			"cache_misses_total",
			metric.WithDescription("Cache misses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		putCounter, err = meter.Int64Counter(
			"cache_puts_total",
			metric.WithDescription("Cache writes"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		getLatency, err = meter.Float64Histogram(
			"cache_get_duration_seconds",
			metric.WithDescription("Duration of cache get operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordHit(ctx context.Context, tier string, elapsed time.Duration) {
	if initMetrics() != nil {
		return
	}
	hitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
	getLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.Bool("hit", true)))
}

func recordMiss(ctx context.Context, elapsed time.Duration) {
	if initMetrics() != nil {
		return
	}
	missCounter.Add(ctx, 1)
	getLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.Bool("hit", false)))
}

func recordPut(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	putCounter.Add(ctx, 1)
}
