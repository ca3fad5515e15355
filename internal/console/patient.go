// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/capture"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/go-chi/chi/v5"
)

// maxCaptureDuration caps a console-started capture run.
const maxCaptureDuration = 30 * time.Minute

type patientDashboard struct {
	Profile   backend.Patient           `json:"profile"`
	Exercises []backend.PatientExercise `json:"exercises"`
}

func (s *Server) patientRoutes(r chi.Router) {
	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		api := s.client(r)
		profile, err := api.PatientMe(r.Context())
		if err != nil {
			writeBackendError(w, r, err)
			return
		}
		exercises, err := api.PatientExercises(r.Context())
		reply(w, r, patientDashboard{Profile: profile, Exercises: exercises}, err)
	})
	r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
		p, err := s.client(r).PatientMe(r.Context())
		reply(w, r, p, err)
	})
	r.Get("/physicians", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).ListPhysicians(r.Context())
		reply(w, r, rows, err)
	})
	r.Post("/physicians/{id}/request", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		writeDone(w, r, s.client(r).RequestSubscription(r.Context(), id))
	})
	r.Post("/unsubscribe", func(w http.ResponseWriter, r *http.Request) {
		writeDone(w, r, s.client(r).Unsubscribe(r.Context()))
	})
	r.Get("/requests", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).PatientRequests(r.Context())
		reply(w, r, rows, err)
	})
	r.Get("/exercises", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).PatientExercises(r.Context())
		reply(w, r, rows, err)
	})
	r.Post("/exercises/{id}/session", s.handleCapture)
	r.Get("/history", s.handleHistory)
}

// handleCapture runs a capture session against the local camera and
// answers with its summary. Closing the request stops the run.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "id")
	if !valid {
		return
	}
	if s.opts.Capture == nil {
		writeError(w, r, http.StatusServiceUnavailable, "CAPTURE_DISABLED", "no camera configured")
		return
	}
	if !s.captureMu.TryLock() {
		writeError(w, r, http.StatusConflict, "CAPTURE_BUSY", "a capture session is already running")
		return
	}
	defer s.captureMu.Unlock()
	if !s.captureLimiter.Allow() {
		writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "capture was started too recently")
		return
	}

	limit := maxCaptureDuration
	if v := r.URL.Query().Get("max_duration"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, r, http.StatusBadRequest, "BAD_DURATION", "max_duration must be a positive duration")
			return
		}
		limit = min(d, maxCaptureDuration)
	}
	ctx, cancel := context.WithTimeout(r.Context(), limit)
	defer cancel()

	logger := xglog.WithComponentFromContext(ctx, "console")
	logger.Info().
		Str(xglog.FieldEvent, "console.capture_started").
		Int64(xglog.FieldPlanExerciseID, id).
		Msg("capture run requested")

	sum, err := s.opts.Capture(ctx, s.client(r), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sum)
	case errors.Is(err, capture.ErrSessionStart):
		writeBackendError(w, r, err)
	case errors.Is(err, capture.ErrCameraUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "CAMERA_UNAVAILABLE", err.Error())
	case errors.Is(err, capture.ErrSessionEnd):
		// Resources are released; the summary is still useful.
		writeJSON(w, http.StatusBadGateway, sum)
	default:
		writeError(w, r, http.StatusInternalServerError, "CAPTURE_FAILED", err.Error())
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, r, http.StatusServiceUnavailable, "HISTORY_DISABLED", "capture history is disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "BAD_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.opts.History.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	totals, err := s.opts.History.Totals(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "totals": totals})
}
