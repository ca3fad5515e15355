// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/physio/internal/log"
)

// ExtractToken retrieves a bearer token from the request.
// 1. Authorization: Bearer <token>
// 2. Header: X-Auth-Token
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-Auth-Token"))
}

// AuthorizeToken returns true if got matches expected using constant-time comparison.
// Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// SessionLoader yields the session to attach to a request.
type SessionLoader interface {
	Load() (Session, error)
}

// Attach loads the current session and puts it on the request context.
// Requests that present a token must present the session's token.
func Attach(loader SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := loader.Load()
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					logger := log.WithComponentFromContext(r.Context(), "auth")
					logger.Error().
						Err(err).
						Str(log.FieldEvent, "auth.session_load_failed").
						Msg("failed to load session")
				}
				next.ServeHTTP(w, r)
				return
			}
			if tok := ExtractToken(r); tok != "" && !AuthorizeToken(tok, sess.Token) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token does not match the active session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireRole rejects requests whose session does not carry role.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := Check(r.Context(), role)
			if err != nil {
				if errors.Is(err, ErrNoSession) {
					writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in first")
					return
				}
				logger := log.WithComponentFromContext(r.Context(), "authz")
				logger.Warn().
					Str(log.FieldEvent, "auth.forbidden").
					Str("required", string(role)).
					Str(log.FieldRole, string(sess.Role)).
					Str(log.FieldPath, r.URL.Path).
					Msg("role not allowed for scope")
				writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": msg})
}
