// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/pose"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	img.Set(0, 0, color.Gray{Y: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

type fakeTrack struct {
	id    string
	stops atomic.Int32
}

func (t *fakeTrack) ID() string { return t.id }
func (t *fakeTrack) Stop()      { t.stops.Add(1) }

type fakeStream struct {
	tracks []*fakeTrack
	frame  Frame
	empty  bool
}

func newFakeStream(n int) *fakeStream {
	s := &fakeStream{frame: Frame{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Seq: 1, CapturedAt: time.Unix(100, 0)}}
	for i := 0; i < n; i++ {
		s.tracks = append(s.tracks, &fakeTrack{id: "track"})
	}
	return s
}

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func (s *fakeStream) Latest() (Frame, bool) { return s.frame, !s.empty }

func (s *fakeStream) stopCounts() []int {
	out := make([]int, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = int(t.stops.Load())
	}
	return out
}

type fakeCamera struct {
	stream *fakeStream
	err    error
	opens  atomic.Int32
}

func (c *fakeCamera) Open(context.Context) (Stream, error) {
	c.opens.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

type manualTicker struct {
	ch    chan time.Time
	stops atomic.Int32
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stops.Add(1) }

type tickers struct {
	mu      sync.Mutex
	created []*manualTicker
}

func (f *tickers) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	f.created = append(f.created, t)
	return t
}

func (f *tickers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *tickers) last(t *testing.T) *manualTicker {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.created, "no ticker created")
	return f.created[len(f.created)-1]
}

// offer delivers a tick if the sampling loop takes it within d.
func (m *manualTicker) offer(d time.Duration) bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(d):
		return false
	}
}

// tick delivers one tick; it returns once the sampling loop received it.
func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("sampling loop did not take the tick")
	}
}

type frameReply func(ctx context.Context, seq int64) (backend.FrameResult, error)

type fakeAPI struct {
	mu       sync.Mutex
	start    backend.SessionStart
	startErr error
	endErr   error
	summary  backend.SessionSummary
	reply    frameReply
	onStart  func()

	starts  int
	ends    int
	seqs    []int64
	records []pose.Record
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		start:   backend.SessionStart{SessionID: 7, ExerciseID: 3},
		summary: backend.SessionSummary{Success: true, SessionID: 7},
	}
}

func (f *fakeAPI) StartExerciseSession(context.Context, int64) (backend.SessionStart, error) {
	f.mu.Lock()
	f.starts++
	start, err, hook := f.start, f.startErr, f.onStart
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return start, err
}

func (f *fakeAPI) EndExerciseSession(context.Context, int64, int64) (backend.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	return f.summary, f.endErr
}

func (f *fakeAPI) SubmitFrameImage(ctx context.Context, _, _, seq int64, _ []byte) (backend.FrameResult, error) {
	f.mu.Lock()
	f.seqs = append(f.seqs, seq)
	reply := f.reply
	f.mu.Unlock()
	if reply == nil {
		return backend.FrameResult{}, nil
	}
	return reply(ctx, seq)
}

func (f *fakeAPI) SubmitFrameLandmarks(ctx context.Context, e, s int64, rec pose.Record) (backend.FrameResult, error) {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	return f.SubmitFrameImage(ctx, e, s, rec.Seq, nil)
}

func (f *fakeAPI) counts() (starts, ends, frames int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.ends, len(f.seqs)
}

type fakeEstimator struct {
	noPose atomic.Bool
	calls  atomic.Int32
}

func (e *fakeEstimator) Estimate(context.Context, []byte) ([]pose.Point, error) {
	e.calls.Add(1)
	if e.noPose.Load() {
		return nil, pose.ErrNoPose
	}
	pts := make([]pose.Point, pose.LandmarkCount)
	for i := range pts {
		pts[i] = pose.Point{X: 0.5, Y: 0.5, Visibility: 1}
	}
	pts[pose.LeftShoulder] = pose.Point{X: 0.4, Y: 0.3, Visibility: 1}
	pts[pose.LeftElbow] = pose.Point{X: 0.4, Y: 0.5, Visibility: 1}
	pts[pose.LeftWrist] = pose.Point{X: 0.6, Y: 0.5, Visibility: 1}
	return pts, nil
}

type memJournal struct {
	mu   sync.Mutex
	runs []Summary
}

func (j *memJournal) Record(_ context.Context, s Summary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, s)
	return nil
}

func intPtr(v int) *int { return &v }
