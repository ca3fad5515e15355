// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ManuGH/physio/internal/backend"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/go-chi/chi/v5"
)

// backendStatus maps a backend client error onto the console response code.
func backendStatus(err error) (int, string) {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, backend.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, backend.ErrValidation):
		return http.StatusBadRequest, "REJECTED"
	case errors.Is(err, backend.ErrUpstream),
		errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, backend.ErrBadResponse):
		return http.StatusBadGateway, "BACKEND_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := backendStatus(err)
	msg := backend.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	if status >= 500 {
		logger := xglog.WithComponentFromContext(r.Context(), "console")
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "console.backend_failed").
			Str(xglog.FieldPath, r.URL.Path).
			Msg("backend call failed")
	}
	writeError(w, r, status, code, msg)
}

// idParam parses a positive integer URL parameter. It writes the 400
// response itself and reports false on failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "BAD_ID", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// reply writes v or the backend error.
func reply[T any](w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeDone(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
