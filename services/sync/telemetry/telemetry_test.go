// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitNilContext(t *testing.T) {
	_, err := Init(nil, Config{TraceExporter: "none", MetricExporter: "none"})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInitNoopExporters(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "shelfsync-test",
		TraceExporter:  "none",
		MetricExporter: "none",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{
		TraceExporter:  "none",
		MetricExporter: "statsd",
	})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestPrometheusHandlerServesMetrics(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "shelfsync-test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
	})
	require.NoError(t, err)
	defer shutdown(context.Background())

	handler := MetricsHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}
