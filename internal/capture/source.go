// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"fmt"

	"github.com/ManuGH/physio/internal/config"
)

// CameraFromConfig builds the configured frame source.
func CameraFromConfig(cam config.CameraConfig, jpegQuality int) (Camera, error) {
	switch cam.Source {
	case config.SourceFFmpeg:
		return FFmpegCamera{
			Bin:         cam.FFmpegBin,
			Device:      cam.Device,
			InputFormat: cam.InputFormat,
			Width:       cam.Width,
			Height:      cam.Height,
			FPS:         cam.FPS,
			Quality:     ffmpegQuality(jpegQuality),
		}, nil
	case config.SourceDir:
		return DirCamera{Dir: cam.ReplayDir, FPS: cam.FPS}, nil
	default:
		return nil, fmt.Errorf("%w: unknown camera source %q", ErrCameraUnavailable, cam.Source)
	}
}

// ffmpegQuality maps a 1..100 JPEG quality onto ffmpeg's 2..31 -q:v scale,
// where lower is better.
func ffmpegQuality(q int) int {
	if q <= 0 {
		return 0
	}
	q = min(q, 100)
	return 2 + (100-q)*29/100
}
