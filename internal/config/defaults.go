// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"time"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    defaultDataDir(),
		LogLevel:   "info",
		LogService: "physio",
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Capture: CaptureConfig{
			Interval:    700 * time.Millisecond,
			Mode:        ModeImage,
			MaxInFlight: 4,
			JPEGQuality: 80,
			RepInterval: 100 * time.Millisecond,
			RepDuration: 10 * time.Second,
		},
		Camera: CameraConfig{
			Source:      SourceFFmpeg,
			FFmpegBin:   "ffmpeg",
			Device:      "/dev/video0",
			InputFormat: "v4l2",
			Width:       640,
			Height:      480,
			FPS:         15,
		},
		Pose: PoseConfig{
			Timeout: 2 * time.Second,
		},
		Notify: NotifyConfig{
			Interval: 15 * time.Second,
			Jitter:   0.2,
		},
		Console: ConsoleConfig{
			Listen:          "127.0.0.1:8090",
			RateLimit:       120,
			RateLimitWindow: time.Minute,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "http",
			Endpoint:     "localhost:4318",
			SamplingRate: 1.0,
		},
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".physio")
	}
	return filepath.Join(os.TempDir(), "physio")
}

// HistoryPath resolves the SQLite history location.
func (c AppConfig) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.DataDir, "history.db")
}

// SessionPath is where the auth session file lives.
func (c AppConfig) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}
