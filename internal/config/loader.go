// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/physio/internal/log"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	envFile         string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys

	dotenv map[string]string
	logger zerolog.Logger
}

// NewLoader creates a new configuration loader. envFile may be empty; a
// missing .env file is not an error.
func NewLoader(configPath, envFile, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		envFile:         envFile,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
		logger:          log.WithComponent("config"),
	}
}

// ConfigPath returns the YAML file this loader reads (may be empty).
func (l *Loader) ConfigPath() string {
	return l.configPath
}

func (l *Loader) lookup(key string) (string, bool) {
	l.ConsumedEnvKeys[key] = struct{}{}
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := l.dotenv[key]
	return v, ok
}

func (l *Loader) envString(key, defaultVal string) string {
	return parseString(l.lookup, l.logger, key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	return parseBool(l.lookup, l.logger, key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	return parseInt(l.lookup, l.logger, key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	return parseDuration(l.lookup, l.logger, key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	return parseFloat(l.lookup, l.logger, key, defaultVal)
}

// Load loads configuration with precedence: ENV > .env > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if err := l.readDotenv(); err != nil {
		return cfg, fmt.Errorf("read env file: %w", err)
	}

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) readDotenv() error {
	l.dotenv = nil
	if l.envFile == "" {
		return nil
	}
	values, err := godotenv.Read(l.envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	l.dotenv = values
	l.logger.Debug().
		Str("event", "config.dotenv_loaded").
		Str("path", l.envFile).
		Int("keys", len(values)).
		Msg("loaded .env file")
	return nil
}

// loadFile decodes a YAML file on top of cfg with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrMultipleDocuments
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString("PHYSIO_DATA", cfg.DataDir)
	cfg.LogLevel = l.envString("PHYSIO_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("PHYSIO_LOG_SERVICE", cfg.LogService)

	cfg.Backend.BaseURL = strings.TrimRight(l.envString("PHYSIO_BACKEND_URL", cfg.Backend.BaseURL), "/")
	cfg.Backend.Timeout = l.envDuration("PHYSIO_BACKEND_TIMEOUT", cfg.Backend.Timeout)

	cfg.Capture.Interval = l.envDuration("PHYSIO_CAPTURE_INTERVAL", cfg.Capture.Interval)
	cfg.Capture.Mode = l.envString("PHYSIO_CAPTURE_MODE", cfg.Capture.Mode)
	cfg.Capture.MaxInFlight = l.envInt("PHYSIO_CAPTURE_MAX_IN_FLIGHT", cfg.Capture.MaxInFlight)
	cfg.Capture.JPEGQuality = l.envInt("PHYSIO_CAPTURE_JPEG_QUALITY", cfg.Capture.JPEGQuality)
	cfg.Capture.RepInterval = l.envDuration("PHYSIO_CAPTURE_REP_INTERVAL", cfg.Capture.RepInterval)
	cfg.Capture.RepDuration = l.envDuration("PHYSIO_CAPTURE_REP_DURATION", cfg.Capture.RepDuration)

	cfg.Camera.Source = l.envString("PHYSIO_CAMERA_SOURCE", cfg.Camera.Source)
	cfg.Camera.FFmpegBin = l.envString("PHYSIO_FFMPEG_BIN", cfg.Camera.FFmpegBin)
	cfg.Camera.Device = l.envString("PHYSIO_CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Camera.InputFormat = l.envString("PHYSIO_CAMERA_FORMAT", cfg.Camera.InputFormat)
	cfg.Camera.Width = l.envInt("PHYSIO_CAMERA_WIDTH", cfg.Camera.Width)
	cfg.Camera.Height = l.envInt("PHYSIO_CAMERA_HEIGHT", cfg.Camera.Height)
	cfg.Camera.FPS = l.envInt("PHYSIO_CAMERA_FPS", cfg.Camera.FPS)
	cfg.Camera.ReplayDir = l.envString("PHYSIO_REPLAY_DIR", cfg.Camera.ReplayDir)

	cfg.Pose.Command = l.envString("PHYSIO_POSE_COMMAND", cfg.Pose.Command)
	cfg.Pose.Args = parseList(l.lookup, "PHYSIO_POSE_ARGS", cfg.Pose.Args)
	cfg.Pose.Timeout = l.envDuration("PHYSIO_POSE_TIMEOUT", cfg.Pose.Timeout)

	cfg.Notify.Interval = l.envDuration("PHYSIO_NOTIFY_INTERVAL", cfg.Notify.Interval)
	cfg.Notify.Jitter = l.envFloat("PHYSIO_NOTIFY_JITTER", cfg.Notify.Jitter)

	cfg.Console.Listen = l.envString("PHYSIO_CONSOLE_LISTEN", cfg.Console.Listen)
	cfg.Console.RateLimit = l.envInt("PHYSIO_CONSOLE_RATE_LIMIT", cfg.Console.RateLimit)
	cfg.Console.RateLimitWindow = l.envDuration("PHYSIO_CONSOLE_RATE_WINDOW", cfg.Console.RateLimitWindow)

	cfg.History.Enabled = l.envBool("PHYSIO_HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.Path = l.envString("PHYSIO_HISTORY_PATH", cfg.History.Path)

	cfg.Telemetry.Enabled = l.envBool("PHYSIO_TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("PHYSIO_TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("PHYSIO_TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("PHYSIO_TRACING_SAMPLE_RATE", cfg.Telemetry.SamplingRate)
}
