// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/ManuGH/physio/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(validConfig(t)))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad backend scheme", func(c *AppConfig) { c.Backend.BaseURL = "ftp://x" }, "Backend.BaseURL"},
		{"interval too short", func(c *AppConfig) { c.Capture.Interval = 10 * time.Millisecond }, "Capture.Interval"},
		{"unknown mode", func(c *AppConfig) { c.Capture.Mode = "video" }, "Capture.Mode"},
		{"rep interval too long", func(c *AppConfig) { c.Capture.RepInterval = 2 * time.Second }, "Capture.RepInterval"},
		{"rep duration too short", func(c *AppConfig) { c.Capture.RepDuration = time.Second }, "Capture.RepDuration"},
		{"zero in flight", func(c *AppConfig) { c.Capture.MaxInFlight = 0 }, "Capture.MaxInFlight"},
		{"unknown source", func(c *AppConfig) { c.Camera.Source = "usb" }, "Camera.Source"},
		{"dir source without dir", func(c *AppConfig) { c.Camera.Source = SourceDir }, "Camera.ReplayDir"},
		{"landmarks without estimator", func(c *AppConfig) { c.Capture.Mode = ModeLandmarks }, "Pose.Command"},
		{"jitter too wide", func(c *AppConfig) { c.Notify.Jitter = 0.9 }, "Notify.Jitter"},
		{"bad listen", func(c *AppConfig) { c.Console.Listen = "nonsense" }, "Console.Listen"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "LogLevel"},
		{"tracing exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "Telemetry.Exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Errors()))
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
