// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Capture payload modes.
const (
	ModeImage     = "image"
	ModeLandmarks = "landmarks"
)

// Camera sources.
const (
	SourceFFmpeg = "ffmpeg"
	SourceDir    = "dir"
)

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	Version string `yaml:"-" json:"-"`

	DataDir    string `yaml:"dataDir" json:"dataDir"`
	LogLevel   string `yaml:"logLevel" json:"logLevel"`
	LogService string `yaml:"logService" json:"logService"`

	Backend   BackendConfig   `yaml:"backend" json:"backend"`
	Capture   CaptureConfig   `yaml:"capture" json:"capture"`
	Camera    CameraConfig    `yaml:"camera" json:"camera"`
	Pose      PoseConfig      `yaml:"pose" json:"pose"`
	Notify    NotifyConfig    `yaml:"notify" json:"notify"`
	Console   ConsoleConfig   `yaml:"console" json:"console"`
	History   HistoryConfig   `yaml:"history" json:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// BackendConfig points at the clinic REST backend.
type BackendConfig struct {
	BaseURL string        `yaml:"baseUrl" json:"baseUrl"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// CaptureConfig controls the frame sampler and uploader.
type CaptureConfig struct {
	// Interval is the fixed sampling period.
	Interval time.Duration `yaml:"interval" json:"interval"`
	// Mode is "image" (multipart JPEG) or "landmarks" (JSON pose record).
	Mode string `yaml:"mode" json:"mode"`
	// MaxInFlight bounds concurrent frame uploads.
	MaxInFlight int `yaml:"maxInFlight" json:"maxInFlight"`
	// JPEGQuality is used when a frame has to be re-encoded.
	JPEGQuality int `yaml:"jpegQuality" json:"jpegQuality"`
	// RepInterval is the sampling period while recording a reference rep.
	RepInterval time.Duration `yaml:"repInterval" json:"repInterval"`
	// RepDuration is how long rep-capture records unless stopped early.
	RepDuration time.Duration `yaml:"repDuration" json:"repDuration"`
}

// CameraConfig selects and tunes the frame source.
type CameraConfig struct {
	Source      string `yaml:"source" json:"source"`
	FFmpegBin   string `yaml:"ffmpegBin" json:"ffmpegBin"`
	Device      string `yaml:"device" json:"device"`
	InputFormat string `yaml:"inputFormat" json:"inputFormat"`
	Width       int    `yaml:"width" json:"width"`
	Height      int    `yaml:"height" json:"height"`
	FPS         int    `yaml:"fps" json:"fps"`
	ReplayDir   string `yaml:"replayDir" json:"replayDir"`
}

// PoseConfig configures the on-device pose estimator sidecar.
type PoseConfig struct {
	Command string        `yaml:"command" json:"command"`
	Args    []string      `yaml:"args" json:"args"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// NotifyConfig configures the pending-request poller.
type NotifyConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	Jitter   float64       `yaml:"jitter" json:"jitter"`
}

// ConsoleConfig configures the local role-scoped console.
type ConsoleConfig struct {
	Listen          string        `yaml:"listen" json:"listen"`
	RateLimit       int           `yaml:"rateLimit" json:"rateLimit"`
	RateLimitWindow time.Duration `yaml:"rateLimitWindow" json:"rateLimitWindow"`
}

// HistoryConfig configures the local capture history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}
