// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) adminRoutes(r chi.Router) {
	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.client(r).AdminStats(r.Context())
		reply(w, r, stats, err)
	})
	r.Get("/analytics", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).PhysicianAnalytics(r.Context())
		reply(w, r, rows, err)
	})
	r.Get("/physicians", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).AdminPhysicians(r.Context())
		reply(w, r, rows, err)
	})
	r.Route("/physicians/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			id, valid := idParam(w, r, "id")
			if !valid {
				return
			}
			p, err := s.client(r).AdminPhysician(r.Context(), id)
			reply(w, r, p, err)
		})
		r.Get("/patients", func(w http.ResponseWriter, r *http.Request) {
			id, valid := idParam(w, r, "id")
			if !valid {
				return
			}
			rows, err := s.client(r).AdminPhysicianPatients(r.Context(), id)
			reply(w, r, rows, err)
		})
		r.Post("/approve", func(w http.ResponseWriter, r *http.Request) {
			id, valid := idParam(w, r, "id")
			if !valid {
				return
			}
			writeDone(w, r, s.client(r).ApprovePhysician(r.Context(), id))
		})
		r.Post("/reject", func(w http.ResponseWriter, r *http.Request) {
			id, valid := idParam(w, r, "id")
			if !valid {
				return
			}
			writeDone(w, r, s.client(r).RejectPhysician(r.Context(), id))
		})
		r.Get("/report", func(w http.ResponseWriter, r *http.Request) {
			id, valid := idParam(w, r, "id")
			if !valid {
				return
			}
			rep, err := s.client(r).PhysicianReport(r.Context(), id)
			reply(w, r, rep, err)
		})
	})
	r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).AdminUsers(r.Context())
		reply(w, r, rows, err)
	})
	r.Patch("/users/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		id, valid := idParam(w, r, "id")
		if !valid {
			return
		}
		api := s.client(r)
		switch chi.URLParam(r, "action") {
		case "enable":
			writeDone(w, r, api.EnableUser(r.Context(), id))
		case "disable":
			writeDone(w, r, api.DisableUser(r.Context(), id))
		default:
			writeError(w, r, http.StatusBadRequest, "BAD_ACTION", "action must be enable or disable")
		}
	})
	r.Get("/audit-logs", func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.client(r).AuditLogs(r.Context())
		reply(w, r, rows, err)
	})
}
