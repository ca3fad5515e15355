// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/ManuGH/physio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "test-service", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "test-service", ExporterType: "invalid"})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestNewProvider_InMemoryExporter(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	provider, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "physio", SamplingRate: 1},
		WithExporter(exp), WithSyncer())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetTracerProvider(nil)
	})

	ctx, span := Tracer("test").Start(context.Background(), "capture.start")
	span.SetAttributes(CaptureAttributes("run-1", 42, 7, 3, "image")...)
	RecordError(ctx, errors.New("camera unavailable"), "camera")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "capture.start", got.Name)
	assert.Equal(t, codes.Error, got.Status.Code)

	attrs := map[string]any{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(7), attrs[CaptureSessionIDKey])
	assert.Equal(t, "camera", attrs[ErrorTypeKey])
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestFromAppConfig(t *testing.T) {
	cfg := config.AppConfig{Version: "1.2.3", LogService: "physio"}
	cfg.Telemetry = config.TelemetryConfig{Enabled: true, Exporter: "http", Endpoint: "otel:4318", SamplingRate: 0.25}

	assert.Equal(t, Config{
		Enabled:        true,
		ServiceName:    "physio",
		ServiceVersion: "1.2.3",
		ExporterType:   "http",
		Endpoint:       "otel:4318",
		SamplingRate:   0.25,
	}, FromAppConfig(cfg))
}
