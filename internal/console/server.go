// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package console serves the local role-scoped JSON console. Each role
// (admin, patient, physician) mounts the same guarded subtree and only
// contributes its own route table.
package console

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/capture"
	"github.com/ManuGH/physio/internal/health"
	"github.com/ManuGH/physio/internal/history"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// CaptureFunc runs one capture session for the signed-in patient and
// returns its terminal summary. Cancelling ctx stops the run.
type CaptureFunc func(ctx context.Context, api *backend.Client, patientExerciseID int64) (capture.Summary, error)

// Options configures a Server.
type Options struct {
	Sessions auth.SessionLoader
	Backend  *backend.Client

	// Optional collaborators; their routes answer 503 when nil.
	Poller  *notify.Poller
	Capture CaptureFunc
	History *history.Store

	RateLimit       int
	RateLimitWindow time.Duration
	ServiceName     string
	Version         string
}

// Server is the console HTTP handler.
type Server struct {
	opts   Options
	router *chi.Mux
	health *health.Manager
	logger zerolog.Logger

	captureMu      sync.Mutex
	captureLimiter *rate.Limiter
}

// New builds the console router.
func New(opts Options) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "physio-console"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 120
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}
	s := &Server{
		opts:           opts,
		logger:         xglog.WithComponent("console"),
		captureLimiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	s.health = s.healthChecks()
	s.router = s.routes()
	return s
}

// healthChecks registers readiness checks for the configured collaborators.
// Only an unreachable backend makes the console unready.
func (s *Server) healthChecks() *health.Manager {
	m := health.NewManager(s.opts.Version)
	if s.opts.Backend != nil {
		m.RegisterChecker(health.NewPingChecker("backend", s.opts.Backend.Ping, health.StatusUnhealthy))
	}
	if s.opts.Sessions != nil {
		m.RegisterChecker(health.NewSessionChecker(s.opts.Sessions))
	}
	if s.opts.History != nil {
		m.RegisterChecker(health.NewPingChecker("history", s.opts.History.Ping, health.StatusDegraded))
	}
	if s.opts.Poller != nil {
		m.RegisterChecker(health.NewPollerChecker(s.opts.Poller, 3*s.opts.Poller.Interval()))
	}
	return m
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(OTelHTTP(s.opts.ServiceName))
	r.Use(AccessLog)
	r.Use(RateLimit(s.opts.RateLimit, s.opts.RateLimitWindow))

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	s.Scope(r, auth.RoleAdmin, s.adminRoutes)
	s.Scope(r, auth.RolePatient, s.patientRoutes)
	s.Scope(r, auth.RolePhysician, s.physicianRoutes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	return r
}

// Scope mounts the guarded subtree for role at /<role>. Every scope shares
// the same chain: attach the stored session, then require the role.
func (s *Server) Scope(r chi.Router, role auth.Role, routes func(chi.Router)) {
	r.Route("/"+role.String(), func(r chi.Router) {
		r.Use(auth.Attach(s.opts.Sessions))
		r.Use(auth.RequireRole(role))
		routes(r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str(xglog.FieldEvent, "console.listening").
			Str("addr", ln.Addr().String()).
			Msg("console listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "console.shutdown_failed").Msg("console shutdown incomplete")
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Str(xglog.FieldEvent, "console.stopped").Msg("console stopped")
	return nil
}

// client returns the backend client bound to the request's session.
func (s *Server) client(r *http.Request) *backend.Client {
	sess, _ := auth.FromContext(r.Context())
	return s.opts.Backend.WithToken(sess.Token)
}
