// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backendtest provides an in-process fake of the clinic backend.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/pose"
	"github.com/go-chi/chi/v5"
)

// Call is one request the fake received.
type Call struct {
	Method string
	Path   string
	Seq    int64
	Token  string
}

// FrameFunc scripts the reply to the n-th frame upload (1-based).
type FrameFunc func(n int, seq int64) (backend.FrameResult, int)

// Server is a scripted clinic backend.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	calls []Call

	// Token, when set, is the only bearer token accepted.
	Token string

	Users        map[string]backend.LoginResponse // keyed by email
	Me           backend.User
	Start        backend.SessionStart
	StartCode    int
	Frame        FrameFunc
	EndCode      int
	Summary      backend.SessionSummary
	Requests     []backend.SubscriptionRequest
	RequestsCode int
	Patients     []backend.Patient
	Physicians   []backend.Physician
	Exercises    []backend.PatientExercise
	Stats        backend.AdminStats
	Patient      backend.Patient
	Physician    backend.Physician
	Plan         *backend.RehabPlan
	PlanItems    []backend.PlanExercise

	frames    int
	repFrames [][]pose.Record
}

// New starts a fake backend. Close it with t.Cleanup(srv.Close).
func New() *Server {
	s := &Server{
		Users:        map[string]backend.LoginResponse{},
		StartCode:    http.StatusOK,
		EndCode:      http.StatusOK,
		RequestsCode: http.StatusOK,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/auth/login", s.login)
	r.Post("/auth/login-admin", s.login)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/auth/me", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, s.Me)
		})
		r.Post("/patient/exercises/{id}/start", s.start)
		r.Post("/exercises/{e}/sessions/{s}/frame", s.frame)
		r.Post("/exercises/{e}/sessions/{s}/end", s.end)
		r.Post("/exercises/{id}/capture-rep", s.captureRep)
		r.Get("/subscription/physician/requests", s.requests)
		r.Post("/subscription/physician/requests/{id}/{decision}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})
		r.Get("/patient/me", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"patient": s.Patient})
		})
		r.Get("/physician/me", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"physician": s.Physician})
		})
		r.Get("/rehab/patients/{id}/plans/current", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"rehab_plan": s.Plan})
		})
		r.Get("/rehab/plans/{id}/exercises", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"exercises": s.PlanItems})
		})
		r.Get("/subscription/patients", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"patients": s.Patients})
		})
		r.Get("/physicians", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"physicians": s.Physicians})
		})
		r.Get("/patient/exercises", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"exercises": s.Exercises})
		})
		r.Get("/admin/stats", func(w http.ResponseWriter, _ *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			writeJSON(w, http.StatusOK, s.Stats)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seq, _ := strconv.ParseInt(r.Header.Get(backend.HeaderFrameSeq), 10, 64)
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: r.Method,
			Path:   r.URL.Path,
			Seq:    seq,
			Token:  strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := s.Token
		s.mu.Unlock()
		if want != "" && r.Header.Get("Authorization") != "Bearer "+want {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	resp, ok := s.Users[body.Email]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) start(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	code, start := s.StartCode, s.Start
	s.mu.Unlock()
	if code != http.StatusOK {
		writeJSON(w, code, map[string]any{"success": false, "message": "cannot start session"})
		return
	}
	writeJSON(w, http.StatusOK, start)
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	seq, _ := strconv.ParseInt(r.Header.Get(backend.HeaderFrameSeq), 10, 64)

	s.mu.Lock()
	s.frames++
	n, fn := s.frames, s.Frame
	s.mu.Unlock()

	if fn == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	res, code := fn(n, seq)
	if code == 0 {
		code = http.StatusOK
	}
	if code != http.StatusOK {
		writeJSON(w, code, map[string]any{"detail": "frame rejected"})
		return
	}
	writeJSON(w, code, res)
}

func (s *Server) end(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	code, sum := s.EndCode, s.Summary
	s.mu.Unlock()
	if code != http.StatusOK {
		writeJSON(w, code, map[string]any{"success": false, "message": "cannot end session"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) captureRep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Frames []pose.Record `json:"frames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	s.repFrames = append(s.repFrames, body.Frames)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "frames": len(body.Frames)})
}

func (s *Server) requests(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	code, reqs := s.RequestsCode, s.Requests
	s.mu.Unlock()
	if code != http.StatusOK {
		writeJSON(w, code, map[string]any{"detail": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

// Set runs fn with the fake's lock held so tests can change scripts safely.
func (s *Server) Set(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Calls returns every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many requests matched method and path suffix.
func (s *Server) Count(method, pathSuffix string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && strings.HasSuffix(c.Path, pathSuffix) {
			n++
		}
	}
	return n
}

// RepFrames returns the frame batches posted to capture-rep.
func (s *Server) RepFrames() [][]pose.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]pose.Record(nil), s.repFrames...)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
