// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/physio/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.URL("Backend.BaseURL", cfg.Backend.BaseURL, []string{"http", "https"})
	v.DurationRange("Backend.Timeout", cfg.Backend.Timeout, time.Second, 5*time.Minute)

	v.Directory("DataDir", cfg.DataDir, false)
	v.OneOf("LogLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	// Sampling faster than 10/s floods the backend; slower than 10s is useless for rep counting.
	v.DurationRange("Capture.Interval", cfg.Capture.Interval, 100*time.Millisecond, 10*time.Second)
	v.OneOf("Capture.Mode", cfg.Capture.Mode, []string{ModeImage, ModeLandmarks})
	v.Range("Capture.MaxInFlight", cfg.Capture.MaxInFlight, 1, 32)
	v.Range("Capture.JPEGQuality", cfg.Capture.JPEGQuality, 1, 100)
	v.DurationRange("Capture.RepInterval", cfg.Capture.RepInterval, 20*time.Millisecond, time.Second)
	v.DurationRange("Capture.RepDuration", cfg.Capture.RepDuration, 2*time.Second, 2*time.Minute)

	v.OneOf("Camera.Source", cfg.Camera.Source, []string{SourceFFmpeg, SourceDir})
	switch cfg.Camera.Source {
	case SourceFFmpeg:
		v.NotEmpty("Camera.FFmpegBin", cfg.Camera.FFmpegBin)
		v.NotEmpty("Camera.Device", cfg.Camera.Device)
		v.Positive("Camera.Width", cfg.Camera.Width)
		v.Positive("Camera.Height", cfg.Camera.Height)
		v.Range("Camera.FPS", cfg.Camera.FPS, 1, 60)
	case SourceDir:
		v.NotEmpty("Camera.ReplayDir", cfg.Camera.ReplayDir)
	}

	if cfg.Capture.Mode == ModeLandmarks {
		v.NotEmpty("Pose.Command", cfg.Pose.Command)
	}
	v.DurationRange("Pose.Timeout", cfg.Pose.Timeout, 100*time.Millisecond, time.Minute)

	v.DurationRange("Notify.Interval", cfg.Notify.Interval, time.Second, time.Hour)
	v.FloatRange("Notify.Jitter", cfg.Notify.Jitter, 0, 0.5)

	v.ListenAddr("Console.Listen", cfg.Console.Listen)
	v.Positive("Console.RateLimit", cfg.Console.RateLimit)
	v.DurationRange("Console.RateLimitWindow", cfg.Console.RateLimitWindow, time.Second, time.Hour)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
