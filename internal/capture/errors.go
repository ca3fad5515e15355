// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import "errors"

var (
	// ErrCameraUnavailable is terminal: the stream could not be acquired.
	ErrCameraUnavailable = errors.New("capture: camera unavailable")
	// ErrSessionStart is terminal: the backend refused to open a session.
	ErrSessionStart = errors.New("capture: session start failed")
	// ErrSessionEnd is returned after resources were released.
	ErrSessionEnd = errors.New("capture: session end failed")
	// ErrIllegalTransition is returned for an event the current state forbids.
	ErrIllegalTransition = errors.New("capture: illegal transition")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("capture: already started")
	// ErrStopped is returned when a stop won the race against Start.
	ErrStopped = errors.New("capture: stopped")
	// ErrNotEnoughFrames is returned when a rep capture has too few poses.
	ErrNotEnoughFrames = errors.New("capture: not enough frames")
	// ErrNoFrame is returned when the stream has not produced a frame yet.
	ErrNoFrame = errors.New("capture: no frame available")
)
