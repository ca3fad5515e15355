// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"fmt"

	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/config"
	"github.com/ManuGH/physio/internal/pose"
)

// FrameSink receives serialized samples.
type FrameSink interface {
	SubmitFrameImage(ctx context.Context, exerciseID, sessionID, seq int64, jpeg []byte) (backend.FrameResult, error)
	SubmitFrameLandmarks(ctx context.Context, exerciseID, sessionID int64, rec pose.Record) (backend.FrameResult, error)
}

// Estimator turns a JPEG into landmarks. *pose.Sidecar implements it.
type Estimator interface {
	Estimate(ctx context.Context, jpeg []byte) ([]pose.Point, error)
}

// Sample identifies one upload.
type Sample struct {
	ExerciseID int64
	SessionID  int64
	Seq        int64
	Frame      Frame
}

// Encoder serializes a frame and submits it.
type Encoder interface {
	Mode() string
	Submit(ctx context.Context, sink FrameSink, s Sample) (backend.FrameResult, error)
}

// ImageEncoder uploads the raw JPEG.
type ImageEncoder struct{}

func (ImageEncoder) Mode() string { return config.ModeImage }

func (ImageEncoder) Submit(ctx context.Context, sink FrameSink, s Sample) (backend.FrameResult, error) {
	return sink.SubmitFrameImage(ctx, s.ExerciseID, s.SessionID, s.Seq, s.Frame.Data)
}

// LandmarkEncoder estimates the pose locally and uploads joints and angles.
type LandmarkEncoder struct {
	Estimator Estimator
	Triples   []pose.Triple
}

func (LandmarkEncoder) Mode() string { return config.ModeLandmarks }

func (e LandmarkEncoder) Submit(ctx context.Context, sink FrameSink, s Sample) (backend.FrameResult, error) {
	rec, err := e.Record(ctx, s.Frame)
	if err != nil {
		return backend.FrameResult{}, err
	}
	rec.Seq = s.Seq
	return sink.SubmitFrameLandmarks(ctx, s.ExerciseID, s.SessionID, rec)
}

// Record derives the landmark/angle record of f.
func (e LandmarkEncoder) Record(ctx context.Context, f Frame) (pose.Record, error) {
	points, err := e.Estimator.Estimate(ctx, f.Data)
	if err != nil {
		return pose.Record{}, err
	}
	rec, ok := pose.Derive(points, e.Triples)
	if !ok {
		return pose.Record{}, fmt.Errorf("%w: %d landmarks", pose.ErrNoPose, len(points))
	}
	rec.Timestamp = float64(f.CapturedAt.UnixMilli()) / 1000
	return rec, nil
}
