// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/physio/internal/backend"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/pose"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Stats counts what happened to sampled frames.
type Stats struct {
	Sent         int64 `json:"frames_sent"`
	Failed       int64 `json:"frames_failed"`
	Skipped      int64 `json:"frames_skipped"`
	StaleDropped int64 `json:"stale_dropped"`
	NoPose       int64 `json:"no_pose"`
}

// applyFunc receives every successful response with the seq it answers.
type applyFunc func(seq int64, res backend.FrameResult)

// uploader issues one fire-and-forget upload per tick, bounded by a semaphore.
type uploader struct {
	sink  FrameSink
	enc   Encoder
	apply applyFunc

	sem chan struct{}
	seq atomic.Int64
	wg  sync.WaitGroup

	sent, failed, skipped, stale, noPose atomic.Int64

	logger  zerolog.Logger
	failLog rate.Sometimes
}

func newUploader(sink FrameSink, enc Encoder, maxInFlight int, apply applyFunc, logger zerolog.Logger) *uploader {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &uploader{
		sink:    sink,
		enc:     enc,
		apply:   apply,
		sem:     make(chan struct{}, maxInFlight),
		logger:  logger,
		failLog: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// submit starts an upload of f. It reports false when the in-flight bound
// is reached and the frame was skipped.
func (u *uploader) submit(ctx context.Context, exerciseID, sessionID int64, f Frame) bool {
	select {
	case u.sem <- struct{}{}:
	default:
		u.skip()
		return false
	}
	s := Sample{ExerciseID: exerciseID, SessionID: sessionID, Seq: u.seq.Add(1), Frame: f}

	u.wg.Add(1)
	uploadsInFlight.Inc()
	go func() {
		defer func() {
			<-u.sem
			uploadsInFlight.Dec()
			u.wg.Done()
		}()
		res, err := u.enc.Submit(ctx, u.sink, s)
		if err != nil {
			u.fail(ctx, s.Seq, err)
			return
		}
		u.sent.Add(1)
		framesTotal.WithLabelValues(u.enc.Mode(), frameSent).Inc()
		u.apply(s.Seq, res)
	}()
	return true
}

func (u *uploader) fail(ctx context.Context, seq int64, err error) {
	switch {
	case errors.Is(err, pose.ErrNoPose):
		u.noPose.Add(1)
		framesTotal.WithLabelValues(u.enc.Mode(), frameNoPose).Inc()
		return
	case ctx.Err() != nil:
		// Cancelled by stop; not a delivery failure.
		return
	}
	u.failed.Add(1)
	framesTotal.WithLabelValues(u.enc.Mode(), frameFailed).Inc()
	u.failLog.Do(func() {
		u.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "capture.frame_failed").
			Int64(xglog.FieldSeq, seq).
			Int64("failed_total", u.failed.Load()).
			Msg("frame upload failed")
	})
}

func (u *uploader) skip() {
	u.skipped.Add(1)
	framesTotal.WithLabelValues(u.enc.Mode(), frameSkipped).Inc()
}

func (u *uploader) dropStale() {
	u.stale.Add(1)
	framesTotal.WithLabelValues(u.enc.Mode(), frameStale).Inc()
}

// wait blocks until every issued upload has returned.
func (u *uploader) wait() {
	u.wg.Wait()
}

func (u *uploader) stats() Stats {
	return Stats{
		Sent:         u.sent.Load(),
		Failed:       u.failed.Load(),
		Skipped:      u.skipped.Load(),
		StaleDropped: u.stale.Load(),
		NoPose:       u.noPose.Load(),
	}
}
