// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/capture"
	"github.com/ManuGH/physio/internal/config"
	"github.com/ManuGH/physio/internal/console"
	"github.com/ManuGH/physio/internal/history"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/pose"
	"golang.org/x/sync/errgroup"
)

// rig is the camera and encoder for one capture run.
type rig struct {
	camera  capture.Camera
	encoder capture.Encoder
	sidecar *pose.Sidecar
}

// newRig builds the configured camera. The pose sidecar is started when the
// capture mode needs landmarks or withPose is set.
func (a *app) newRig(ctx context.Context, withPose bool) (*rig, error) {
	cam, err := capture.CameraFromConfig(a.cfg.Camera, a.cfg.Capture.JPEGQuality)
	if err != nil {
		return nil, err
	}
	r := &rig{camera: cam, encoder: capture.ImageEncoder{}}

	landmarks := a.cfg.Capture.Mode == config.ModeLandmarks
	if !withPose && !landmarks {
		return r, nil
	}
	if a.cfg.Pose.Command == "" {
		return nil, errors.New("pose.command must be configured for landmark capture")
	}
	sc, err := pose.StartSidecar(ctx, pose.SidecarConfig{
		Command: a.cfg.Pose.Command,
		Args:    a.cfg.Pose.Args,
		Timeout: a.cfg.Pose.Timeout,
	})
	if err != nil {
		return nil, err
	}
	r.sidecar = sc
	if landmarks {
		r.encoder = capture.LandmarkEncoder{Estimator: sc}
	}
	return r, nil
}

func (r *rig) Close() error {
	if r.sidecar == nil {
		return nil
	}
	return r.sidecar.Close()
}

// openHistory opens the local run journal when enabled. Failure to open it
// is logged and capture continues without it.
func (a *app) openHistory(ctx context.Context) *history.Store {
	if !a.cfg.History.Enabled {
		return nil
	}
	st, err := history.Open(ctx, a.cfg.HistoryPath())
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "history.open_failed").
			Str(xglog.FieldPath, a.cfg.HistoryPath()).
			Msg("capture history disabled for this run")
		return nil
	}
	return st
}

func journal(st *history.Store) capture.Journal {
	if st == nil {
		return nil
	}
	return st
}

func (a *app) newController(api capture.API, r *rig, st *history.Store) *capture.Controller {
	return capture.NewController(capture.Options{
		API:         api,
		Camera:      r.camera,
		Encoder:     r.encoder,
		Interval:    a.cfg.Capture.Interval,
		MaxInFlight: a.cfg.Capture.MaxInFlight,
		Journal:     journal(st),
	})
}

// captureFunc runs console-initiated capture sessions.
func (a *app) captureFunc(st *history.Store) console.CaptureFunc {
	return func(ctx context.Context, api *backend.Client, patientExerciseID int64) (capture.Summary, error) {
		r, err := a.newRig(ctx, false)
		if err != nil {
			return capture.Summary{}, fmt.Errorf("%w: %w", capture.ErrCameraUnavailable, err)
		}
		defer func() { _ = r.Close() }()
		return a.newController(api, r, st).Run(ctx, patientExerciseID)
	}
}

func runSession(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("session")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	if fs.NArg() != 1 {
		return usageError(c, fs, "usage: physio session [flags] <patientExerciseId>")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return usageError(c, fs, "%v", err)
	}
	_, api, err := a.session(auth.RolePatient)
	if err != nil {
		return a.fail(err)
	}
	defer a.startTelemetry(ctx)()

	st := a.openHistory(ctx)
	if st != nil {
		defer func() { _ = st.Close() }()
	}
	r, err := a.newRig(ctx, false)
	if err != nil {
		return a.fail(err)
	}
	defer func() { _ = r.Close() }()

	ctrl := a.newController(api, r, st)
	fmt.Fprintf(a.stderr, "Starting exercise %d, press Ctrl+C to stop\n", id)

	var (
		sum    capture.Summary
		runErr error
	)
	var grp errgroup.Group
	grp.Go(func() error {
		sum, runErr = ctrl.Run(ctx, id)
		return nil
	})
	grp.Go(func() error {
		for s := range ctrl.Updates() {
			fmt.Fprintf(a.stderr, "status=%s reps=%d\n", s.Status, s.RepCount)
		}
		return nil
	})
	_ = grp.Wait()

	if a.flags.json {
		a.printJSON(sum)
	} else {
		printSummary(a, sum)
	}
	if runErr != nil {
		return a.fail(runErr)
	}
	return exitOK
}

func printSummary(a *app, sum capture.Summary) {
	s := sum.Session
	fmt.Fprintf(a.stdout, "Session %d (exercise %d): %s, %d reps\n", s.SessionID, s.ExerciseID, s.Status, s.RepCount)
	if sum.Result.Success {
		fmt.Fprintf(a.stdout, "Backend: %d reps completed, accuracy %.1f%%, %.0fs\n",
			sum.Result.CompletedReps, sum.Result.Accuracy, sum.Result.DurationSec)
	}
	st := sum.Stats
	fmt.Fprintf(a.stdout, "Frames: %d sent, %d failed, %d skipped, %d stale\n", st.Sent, st.Failed, st.Skipped, st.StaleDropped)
}

func runRepCapture(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("rep-capture")
	duration := fs.Duration("duration", 0, "how long to record (default capture.repDuration)")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	if fs.NArg() != 1 {
		return usageError(c, fs, "usage: physio rep-capture [--duration 10s] <exerciseId>")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return usageError(c, fs, "%v", err)
	}
	_, api, err := a.session(auth.RolePhysician)
	if err != nil {
		return a.fail(err)
	}
	if *duration <= 0 {
		*duration = a.cfg.Capture.RepDuration
	}

	r, err := a.newRig(ctx, true)
	if err != nil {
		return a.fail(err)
	}
	defer func() { _ = r.Close() }()

	rec := capture.NewRepRecorder(capture.RepOptions{
		API:       api,
		Camera:    r.camera,
		Estimator: r.sidecar,
		Interval:  a.cfg.Capture.RepInterval,
	})
	if err := rec.Start(ctx, id); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stderr, "Recording for %s, press Ctrl+C to finish early\n", *duration)

	timer := time.NewTimer(*duration)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()

	res, err := rec.Stop(context.WithoutCancel(ctx))
	if err != nil {
		if errors.Is(err, capture.ErrNotEnoughFrames) {
			fmt.Fprintf(a.stderr, "Only %d frames with a detected pose, need %d\n", rec.Frames(), capture.MinRepFrames)
		}
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "%s\n", res)
	return exitOK
}
