// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"
	"time"
)

// Frame is one decoded camera image. Data is a complete JPEG.
// Frames are immutable once published; consumers must not modify Data.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
	Seq        uint64
}

// Track is one acquired media track. Stop is idempotent.
type Track interface {
	ID() string
	Stop()
}

// Stream is an open camera stream.
type Stream interface {
	Tracks() []Track
	// Latest returns the most recent frame; older frames are overwritten.
	Latest() (Frame, bool)
}

// Camera acquires a stream.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// StopTracks stops every track of s.
func StopTracks(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// mailbox holds only the newest frame.
type mailbox struct {
	mu    sync.Mutex
	frame Frame
	ok    bool
	seq   uint64
	ready chan struct{}
	once  sync.Once
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{})}
}

// put publishes data as the latest frame. data is owned by the mailbox afterwards.
func (m *mailbox) put(data []byte, at time.Time) {
	f := Frame{Data: data, CapturedAt: at}
	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
		f.Width, f.Height = cfg.Width, cfg.Height
	}
	m.mu.Lock()
	m.seq++
	f.Seq = m.seq
	m.frame = f
	m.ok = true
	m.mu.Unlock()
	m.once.Do(func() { close(m.ready) })
}

// invalidate makes latest report no frame from now on.
func (m *mailbox) invalidate() {
	m.mu.Lock()
	m.ok = false
	m.frame = Frame{}
	m.mu.Unlock()
}

func (m *mailbox) latest() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame, m.ok
}

// Ticker abstracts time.Ticker so the sampling loop can be driven by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker with period d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}
