// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/physio/internal/backend"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/pose"
	"github.com/rs/zerolog"
)

// MinRepFrames is the fewest pose records the backend accepts for a rep.
const MinRepFrames = 15

// DefaultRepInterval samples fast enough that a short demonstration clears
// MinRepFrames.
const DefaultRepInterval = 100 * time.Millisecond

// RepAPI posts a buffered rep.
type RepAPI interface {
	CaptureRep(ctx context.Context, exerciseID int64, frames []pose.Record) (backend.RepCaptureResult, error)
}

// RepOptions configures a RepRecorder.
type RepOptions struct {
	API       RepAPI
	Camera    Camera
	Estimator Estimator
	Triples   []pose.Triple
	Interval  time.Duration
	NewTicker TickerFunc
}

// RepRecorder buffers landmark records while a physician demonstrates an
// exercise and posts them in one call on Stop.
type RepRecorder struct {
	opts   RepOptions
	enc    LandmarkEncoder
	logger zerolog.Logger

	mu         sync.Mutex
	exerciseID int64
	started    bool
	stopping   bool
	frames     []pose.Record
	stream     Stream
	ticker     Ticker
	cancel     context.CancelFunc
	done       chan struct{}

	stopOnce sync.Once
	result   backend.RepCaptureResult
	err      error
}

// NewRepRecorder builds an idle recorder.
func NewRepRecorder(opts RepOptions) *RepRecorder {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRepInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	return &RepRecorder{
		opts:   opts,
		enc:    LandmarkEncoder{Estimator: opts.Estimator, Triples: opts.Triples},
		logger: xglog.WithComponent("repcapture"),
	}
}

// Start opens the camera and begins buffering.
func (r *RepRecorder) Start(ctx context.Context, exerciseID int64) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.exerciseID = exerciseID
	r.mu.Unlock()

	stream, err := r.opts.Camera.Open(ctx)
	if err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Lock()
	if r.stopping {
		r.mu.Unlock()
		cancel()
		StopTracks(stream)
		return ErrStopped
	}
	r.stream = stream
	r.ticker = r.opts.NewTicker(r.opts.Interval)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.ticker, stream, r.done)
	r.mu.Unlock()

	r.logger.Info().
		Str(xglog.FieldEvent, "repcapture.start").
		Int64(xglog.FieldExerciseID, exerciseID).
		Msg("rep capture started")
	return nil
}

func (r *RepRecorder) loop(ctx context.Context, ticker Ticker, stream Stream, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			frame, ok := stream.Latest()
			if !ok {
				repFramesTotal.WithLabelValues(frameSkipped).Inc()
				continue
			}
			rec, err := r.enc.Record(ctx, frame)
			if err != nil {
				if errors.Is(err, pose.ErrNoPose) {
					repFramesTotal.WithLabelValues(frameNoPose).Inc()
				} else if ctx.Err() == nil {
					r.logger.Debug().Err(err).Str(xglog.FieldEvent, "repcapture.estimate_failed").Msg("pose estimate failed")
				}
				continue
			}
			r.mu.Lock()
			rec.Seq = int64(len(r.frames) + 1)
			r.frames = append(r.frames, rec)
			r.mu.Unlock()
			repFramesTotal.WithLabelValues("buffered").Inc()
		}
	}
}

// Frames returns how many records are buffered.
func (r *RepRecorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *RepRecorder) release() []pose.Record {
	r.mu.Lock()
	r.stopping = true
	cancel, ticker, done, stream := r.cancel, r.ticker, r.done, r.stream
	r.stream, r.ticker = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ticker != nil {
		ticker.Stop()
	}
	if done != nil {
		<-done
	}
	StopTracks(stream)

	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pose.Record(nil), r.frames...)
}

// Stop releases the camera and ticker, then posts the buffered frames.
// Later calls return the first result.
func (r *RepRecorder) Stop(ctx context.Context) (backend.RepCaptureResult, error) {
	r.stopOnce.Do(func() {
		frames := r.release()
		if len(frames) < MinRepFrames {
			r.err = fmt.Errorf("%w: have %d, need %d", ErrNotEnoughFrames, len(frames), MinRepFrames)
			return
		}
		r.result, r.err = r.opts.API.CaptureRep(ctx, r.exerciseID, frames)
		r.logger.Info().
			Err(r.err).
			Str(xglog.FieldEvent, "repcapture.posted").
			Int64(xglog.FieldExerciseID, r.exerciseID).
			Int("frames", len(frames)).
			Msg("rep capture posted")
	})
	return r.result, r.err
}

// Close releases resources without posting.
func (r *RepRecorder) Close() error {
	r.stopOnce.Do(func() { r.release() })
	return nil
}
