// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import "context"

type sessionKey struct{}

// WithSession returns a child context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Check returns the context session if its role matches required.
func Check(ctx context.Context, required Role) (Session, error) {
	s, ok := FromContext(ctx)
	if !ok || !s.Valid() {
		return Session{}, ErrNoSession
	}
	if s.Role != required {
		return s, &RoleError{Required: required, Actual: s.Role}
	}
	return s, nil
}
