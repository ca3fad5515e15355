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
	"github.com/ManuGH/physio/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "physio/capture"

// DefaultInterval is the sampling period when none is configured.
const DefaultInterval = 700 * time.Millisecond

// DefaultMaxInFlight bounds concurrent uploads when none is configured.
const DefaultMaxInFlight = 4

// API is the slice of the backend client a capture session needs.
type API interface {
	FrameSink
	StartExerciseSession(ctx context.Context, patientExerciseID int64) (backend.SessionStart, error)
	EndExerciseSession(ctx context.Context, exerciseID, sessionID int64) (backend.SessionSummary, error)
}

// Journal records finished runs.
type Journal interface {
	Record(ctx context.Context, s Summary) error
}

// Options configures a Controller.
type Options struct {
	API         API
	Camera      Camera
	Encoder     Encoder
	Interval    time.Duration
	MaxInFlight int
	NewTicker   TickerFunc
	Journal     Journal
	Now         func() time.Time
}

// Session is the observable state of a capture run.
type Session struct {
	RunID          string `json:"run_id"`
	PlanExerciseID int64  `json:"plan_exercise_id"`
	SessionID      int64  `json:"session_id"`
	ExerciseID     int64  `json:"exercise_id"`
	Status         State  `json:"status"`
	RepCount       int    `json:"rep_count"`
	LastSeq        int64  `json:"last_seq"`
}

// Summary is the terminal result of a run.
type Summary struct {
	Session   Session                `json:"session"`
	Result    backend.SessionSummary `json:"result"`
	Stats     Stats                  `json:"stats"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at"`
	Error     string                 `json:"error,omitempty"`
}

// Controller runs one exercise session: start, sample loop, stop.
// A Controller is single use.
type Controller struct {
	opts   Options
	logger zerolog.Logger

	mu        sync.Mutex
	sess      Session
	started   bool
	startedAt time.Time
	failErr   error
	stream    Stream
	ticker    Ticker
	up        *uploader

	loopCancel   context.CancelFunc
	loopDone     chan struct{}
	uploadCancel context.CancelFunc
	baseCtx      context.Context

	updates       chan Session
	updatesClosed bool

	completed    chan struct{}
	completeOnce sync.Once
	released     chan struct{}
	stopped      chan struct{}
	bg           sync.WaitGroup

	stopOnce sync.Once
	summary  Summary
	stopErr  error
}

// NewController builds a controller in INITIALIZING.
func NewController(opts Options) *Controller {
	if opts.Encoder == nil {
		opts.Encoder = ImageEncoder{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	runID := uuid.NewString()
	c := &Controller{
		opts:      opts,
		sess:      Session{RunID: runID, Status: StateInitializing},
		updates:   make(chan Session, 1),
		completed: make(chan struct{}),
		released:  make(chan struct{}),
		stopped:   make(chan struct{}),
		baseCtx:   context.Background(),
	}
	c.logger = xglog.WithComponent("capture").With().
		Str(xglog.FieldRunID, runID).
		Str(xglog.FieldMode, opts.Encoder.Mode()).
		Logger()
	c.up = newUploader(opts.API, opts.Encoder, opts.MaxInFlight, c.apply, c.logger)
	return c
}

// Start opens the backend session, then the camera, then begins sampling.
// Failure at either step is terminal (ERROR) and nothing is retried.
func (c *Controller) Start(ctx context.Context, planExerciseID int64) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.startedAt = c.opts.Now()
	c.sess.PlanExerciseID = planExerciseID
	c.baseCtx = context.WithoutCancel(xglog.ContextWithRunID(ctx, c.sess.RunID))
	c.mu.Unlock()

	logger := c.logger.With().Int64(xglog.FieldPlanExerciseID, planExerciseID).Logger()

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "capture.start",
		trace.WithAttributes(telemetry.CaptureAttributes(c.sess.RunID, planExerciseID, 0, 0, c.opts.Encoder.Mode())...))
	defer span.End()

	start, err := c.opts.API.StartExerciseSession(ctx, planExerciseID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionStart, err)
		c.fail(EvStartFailed, err)
		telemetry.RecordError(ctx, err, "session_start")
		logger.Error().Err(err).Str(xglog.FieldEvent, "capture.start_failed").Msg("session start failed")
		return err
	}

	c.mu.Lock()
	if _, err := c.fireLocked(EvStartAcknowledged); err != nil {
		c.mu.Unlock()
		c.endAbandoned(context.WithoutCancel(ctx), start)
		return ErrStopped
	}
	c.sess.SessionID = start.SessionID
	c.sess.ExerciseID = start.ExerciseID
	c.mu.Unlock()
	span.SetAttributes(telemetry.CaptureAttributes("", 0, start.SessionID, start.ExerciseID, "")...)

	logger = logger.With().
		Int64(xglog.FieldSessionID, start.SessionID).
		Int64(xglog.FieldExerciseID, start.ExerciseID).
		Logger()
	logger.Info().Str(xglog.FieldEvent, "capture.session_started").Msg("backend session opened")

	stream, err := c.opts.Camera.Open(ctx)
	if err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		c.fail(EvCameraFailed, err)
		telemetry.RecordError(ctx, err, "camera")
		logger.Error().Err(err).Str(xglog.FieldEvent, "capture.camera_failed").Msg("camera acquisition failed")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.fireLocked(EvCameraReady); err != nil {
		// Stopped while the camera was opening.
		StopTracks(stream)
		return ErrStopped
	}
	c.stream = stream
	c.ticker = c.opts.NewTicker(c.opts.Interval)

	loopCtx, loopCancel := context.WithCancel(c.baseCtx)
	uploadCtx, uploadCancel := context.WithCancel(c.baseCtx)
	c.loopCancel, c.uploadCancel = loopCancel, uploadCancel
	c.loopDone = make(chan struct{})

	c.bg.Add(2)
	go c.loop(loopCtx, uploadCtx, c.ticker, stream, start.ExerciseID, start.SessionID, c.loopDone)
	go c.watch()

	logger.Info().
		Str(xglog.FieldEvent, "capture.running").
		Dur("interval", c.opts.Interval).
		Int("tracks", len(stream.Tracks())).
		Msg("sampling started")
	return nil
}

// endAbandoned closes a backend session whose start lost the race with Stop.
func (c *Controller) endAbandoned(ctx context.Context, start backend.SessionStart) {
	logger := c.logger.With().
		Int64(xglog.FieldSessionID, start.SessionID).
		Int64(xglog.FieldExerciseID, start.ExerciseID).
		Logger()
	if _, err := c.opts.API.EndExerciseSession(ctx, start.ExerciseID, start.SessionID); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "capture.abandoned_end_failed").Msg("failed to end session opened after stop")
		return
	}
	logger.Info().Str(xglog.FieldEvent, "capture.abandoned_ended").Msg("ended session opened after stop")
}

func (c *Controller) loop(ctx, uploadCtx context.Context, ticker Ticker, stream Stream, exerciseID, sessionID int64, done chan struct{}) {
	defer c.bg.Done()
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			frame, ok := stream.Latest()
			if !ok {
				c.up.skip()
				continue
			}
			c.up.submit(uploadCtx, exerciseID, sessionID, frame)
		}
	}
}

// watch turns a COMPLETED report into exactly one stop sequence.
func (c *Controller) watch() {
	defer c.bg.Done()
	select {
	case <-c.completed:
		c.mu.Lock()
		ctx := c.baseCtx
		c.mu.Unlock()
		c.stopOnce.Do(func() { c.runStop(ctx, EvCompletedReported) })
	case <-c.released:
	}
}

// apply folds an upload response into the session. Responses older than the
// last applied one are dropped.
func (c *Controller) apply(seq int64, res backend.FrameResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Status != StateRunning {
		return
	}
	if seq < c.sess.LastSeq {
		c.up.dropStale()
		c.logger.Debug().
			Str(xglog.FieldEvent, "capture.stale_dropped").
			Int64(xglog.FieldSeq, seq).
			Int64("last_seq", c.sess.LastSeq).
			Msg("stale frame response dropped")
		return
	}
	c.sess.LastSeq = seq
	if res.RepCount != nil && *res.RepCount != c.sess.RepCount {
		c.sess.RepCount = *res.RepCount
		c.logger.Debug().
			Str(xglog.FieldEvent, "capture.rep_count").
			Int(xglog.FieldRepCount, c.sess.RepCount).
			Msg("rep count updated")
		c.publishLocked()
	}
	if res.Status == backend.StatusCompleted {
		c.completeOnce.Do(func() { close(c.completed) })
	}
}

func (c *Controller) fail(ev EventKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ferr := c.fireLocked(ev); ferr != nil {
		return
	}
	c.failErr = err
	sessionsTotal.WithLabelValues(string(StateError)).Inc()
}

// fireLocked applies ev to the session state. Caller holds c.mu.
func (c *Controller) fireLocked(ev EventKind) (State, error) {
	from := c.sess.Status
	to, err := Next(from, ev)
	if err != nil {
		c.logger.Debug().Err(err).Str(xglog.FieldEvent, "capture.transition_rejected").Msg("event ignored")
		return from, err
	}
	if to != from {
		c.sess.Status = to
		c.logger.Info().
			Str(xglog.FieldEvent, "capture.transition").
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Str("trigger", string(ev)).
			Msg("session state changed")
		c.publishLocked()
	}
	return to, nil
}

// publishLocked offers the latest snapshot; a stale pending one is replaced.
func (c *Controller) publishLocked() {
	if c.updatesClosed {
		return
	}
	snap := c.sess
	select {
	case c.updates <- snap:
		return
	default:
	}
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}

// Stop ends the run. The first call tears down the ticker and camera tracks,
// then calls end-session; later calls wait for and return that result.
func (c *Controller) Stop(ctx context.Context) (Summary, error) {
	c.stopOnce.Do(func() { c.runStop(ctx, EvStopRequested) })
	c.bg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary, c.stopErr
}

type resources struct {
	stream       Stream
	ticker       Ticker
	loopCancel   context.CancelFunc
	loopDone     chan struct{}
	uploadCancel context.CancelFunc
}

func (c *Controller) takeResourcesLocked() resources {
	r := resources{
		stream:       c.stream,
		ticker:       c.ticker,
		loopCancel:   c.loopCancel,
		loopDone:     c.loopDone,
		uploadCancel: c.uploadCancel,
	}
	c.stream, c.ticker = nil, nil
	return r
}

// release stops sampling before the camera, then drains uploads.
func (c *Controller) release(r resources) {
	close(c.released)
	if r.loopCancel != nil {
		r.loopCancel()
	}
	if r.ticker != nil {
		r.ticker.Stop()
	}
	if r.loopDone != nil {
		<-r.loopDone
	}
	StopTracks(r.stream)
	if r.uploadCancel != nil {
		r.uploadCancel()
	}
	c.up.wait()
}

func (c *Controller) runStop(ctx context.Context, ev EventKind) {
	c.mu.Lock()
	_, ferr := c.fireLocked(ev)
	res := c.takeResourcesLocked()
	sess := c.sess
	failErr := c.failErr
	baseCtx := c.baseCtx
	c.mu.Unlock()

	logger := c.logger.With().
		Int64(xglog.FieldSessionID, sess.SessionID).
		Int64(xglog.FieldExerciseID, sess.ExerciseID).
		Logger()

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "capture.stop",
		trace.WithAttributes(telemetry.CaptureAttributes(sess.RunID, sess.PlanExerciseID, sess.SessionID, sess.ExerciseID, "")...))
	defer span.End()

	c.release(res)

	var (
		result backend.SessionSummary
		err    error
	)
	switch {
	case ferr != nil:
		// Terminal already; nothing to end.
		err = failErr
	case sess.SessionID == 0:
		// Stopped before the backend acknowledged the start.
	default:
		result, err = c.opts.API.EndExerciseSession(ctx, sess.ExerciseID, sess.SessionID)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSessionEnd, err)
			telemetry.RecordError(ctx, err, "session_end")
			logger.Error().Err(err).Str(xglog.FieldEvent, "capture.end_failed").Msg("session end failed")
		}
	}
	if ferr == nil {
		sessionsTotal.WithLabelValues(string(StateCompleted)).Inc()
	}

	summary := c.finish(result, err)
	span.SetAttributes(telemetry.CaptureResultAttributes(string(summary.Session.Status), summary.Session.RepCount, summary.Stats.Sent)...)
	logger.Info().
		Str(xglog.FieldEvent, "capture.stopped").
		Str("trigger", string(ev)).
		Str(xglog.FieldStatus, string(summary.Session.Status)).
		Int(xglog.FieldRepCount, summary.Session.RepCount).
		Int64("frames_sent", summary.Stats.Sent).
		Int64("frames_failed", summary.Stats.Failed).
		Int64("stale_dropped", summary.Stats.StaleDropped).
		Msg("capture session stopped")

	if c.opts.Journal != nil {
		if jerr := c.opts.Journal.Record(baseCtx, summary); jerr != nil {
			logger.Warn().Err(jerr).Str(xglog.FieldEvent, "capture.journal_failed").Msg("failed to record capture run")
		}
	}
}

func (c *Controller) finish(result backend.SessionSummary, err error) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = Summary{
		Session:   c.sess,
		Result:    result,
		Stats:     c.up.stats(),
		StartedAt: c.startedAt,
		EndedAt:   c.opts.Now(),
	}
	if err != nil {
		c.summary.Error = err.Error()
	}
	c.stopErr = err
	c.updatesClosed = true
	close(c.updates)
	close(c.stopped)
	return c.summary
}

// Close releases the ticker and camera tracks without ending the backend
// session when no stop ran. It is safe to call after Stop.
func (c *Controller) Close() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		res := c.takeResourcesLocked()
		c.mu.Unlock()
		c.release(res)
		c.finish(backend.SessionSummary{}, nil)
	})
	c.bg.Wait()
	return nil
}

// Run starts the session and samples until completion is reported, ctx is
// cancelled (user stop) or start fails, then returns the terminal summary.
func (c *Controller) Run(ctx context.Context, planExerciseID int64) (Summary, error) {
	if err := c.Start(ctx, planExerciseID); err != nil {
		if errors.Is(err, ErrAlreadyStarted) {
			return Summary{}, err
		}
		sum, _ := c.Stop(context.WithoutCancel(ctx))
		return sum, err
	}
	select {
	case <-ctx.Done():
	case <-c.stopped:
	}
	return c.Stop(context.WithoutCancel(ctx))
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Stats returns the frame counters so far.
func (c *Controller) Stats() Stats {
	return c.up.stats()
}

// Updates delivers session snapshots on state or rep count changes. Only the
// newest pending snapshot is kept. The channel is closed after stop.
func (c *Controller) Updates() <-chan Session {
	return c.updates
}

// Done is closed once the run has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.stopped
}
