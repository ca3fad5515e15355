// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes.
const (
	frameSent    = "sent"
	frameFailed  = "failed"
	frameSkipped = "skipped"
	frameStale   = "stale"
	frameNoPose  = "no_pose"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "physio_capture_frames_total",
		Help: "Sampled frames by outcome (sent, failed, skipped, stale, no_pose).",
	}, []string{"mode", "outcome"})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "physio_capture_sessions_total",
		Help: "Capture sessions by terminal state.",
	}, []string{"state"})

	uploadsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "physio_capture_uploads_in_flight",
		Help: "Frame uploads currently awaiting a response.",
	})

	repFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "physio_capture_rep_frames_total",
		Help: "Rep-capture ticks by outcome (buffered, no_pose, skipped).",
	}, []string{"outcome"})
)
