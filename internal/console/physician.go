// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/notify"
	"github.com/go-chi/chi/v5"
)

type physicianDashboard struct {
	Profile  backend.Physician `json:"profile"`
	Patients []backend.Patient `json:"patients"`
	Pending  *notify.Status    `json:"pending,omitempty"`
}

type planView struct {
	Plan      *backend.RehabPlan     `json:"plan"`
	Exercises []backend.PlanExercise `json:"exercises"`
}

func (s *Server) physicianRoutes(r chi.Router) {
	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		api := s.client(r)
		profile, err := api.PhysicianMe(r.Context())
		if err != nil {
			writeBackendError(w, r, err)
			return
		}
		patients, err := api.SubscribedPatients(r.Context())
		if err != nil {
			writeBackendError(w, r, err)
			return
		}
		dash := physicianDashboard{Profile: profile, Patients: patients}
		if s.opts.Poller != nil {
			st := s.opts.Poller.Status()
			dash.Pending = &st
		}
		writeJSON(w, http.StatusOK, dash)
	})
	r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
		p, err := s.client(r).PhysicianMe(r.Context())
		reply(w, r, p, err)
	})
	r.Get("/pending", func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Poller == nil {
			writeError(w, r, http.StatusServiceUnavailable, "NOTIFY_DISABLED", "pending-request poller is not running")
			return
		}
		writeJSON(w, http.StatusOK, s.opts.Poller.Status())
	})
	r.Get("/requests", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).PhysicianRequests(r.Context())
		reply(w, r, rows, err)
	})
	r.Post("/requests/{id}/{decision}", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		decision := chi.URLParam(r, "decision")
		if decision != backend.Accept && decision != backend.Reject {
			writeError(w, r, http.StatusBadRequest, "BAD_DECISION", "decision must be accept or reject")
			return
		}
		err := s.client(r).RespondRequest(r.Context(), id, decision)
		if err == nil && s.opts.Poller != nil {
			s.opts.Poller.Refresh()
		}
		writeDone(w, r, err)
	})
	r.Get("/patients", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).SubscribedPatients(r.Context())
		reply(w, r, rows, err)
	})
	r.Get("/patients/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		p, err := s.client(r).PhysicianPatient(r.Context(), id)
		reply(w, r, p, err)
	})
	r.Get("/patients/{id}/plan", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		api := s.client(r)
		plan, err := api.CurrentPlan(r.Context(), id)
		if err != nil {
			writeBackendError(w, r, err)
			return
		}
		view := planView{Plan: plan, Exercises: []backend.PlanExercise{}}
		if plan != nil {
			view.Exercises, err = api.PlanExercises(r.Context(), plan.ID)
		}
		reply(w, r, view, err)
	})
	r.Post("/patients/{id}/plan", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		var body struct {
			Notes string `json:"notes"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, r, http.StatusBadRequest, "BAD_BODY", err.Error())
				return
			}
		}
		planID, err := s.client(r).CreatePlan(r.Context(), id, body.Notes)
		reply(w, r, map[string]int64{"plan_id": planID}, err)
	})
	r.Get("/exercises", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).MyExercises(r.Context())
		reply(w, r, rows, err)
	})
	r.Delete("/exercises/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		writeDone(w, r, s.client(r).DeleteExercise(r.Context(), id))
	})
}
