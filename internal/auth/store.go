// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/google/renameio/v2"
)

// Store persists one Session as a private JSON file.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load reads the current session. A missing file yields ErrNoSession.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- path comes from the configured data dir
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if !sess.Valid() {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Login stores a new session, replacing any previous one.
func (s *Store) Login(sess Session) (Session, error) {
	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = s.now().UTC()
	}
	if !sess.Valid() {
		return Session{}, fmt.Errorf("login: %w", ErrInvalidRole)
	}
	if err := s.save(sess); err != nil {
		return Session{}, err
	}
	logger := xglog.WithComponent("auth")
	logger.Info().
		Str(xglog.FieldEvent, "auth.login").
		Int64(xglog.FieldUserID, sess.UserID).
		Str(xglog.FieldRole, string(sess.Role)).
		Msg("session stored")
	return sess, nil
}

func (s *Store) save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending session file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Logout removes the stored session. Logging out twice is not an error.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	logger := xglog.WithComponent("auth")
	logger.Info().
		Str(xglog.FieldEvent, "auth.logout").
		Msg("session removed")
	return nil
}

// IdentityFunc asks the backend who a token belongs to.
type IdentityFunc func(ctx context.Context) (Identity, error)

// Verify checks sess against the backend. A role mismatch is refused
// without touching the store; a rejected token clears it.
func (s *Store) Verify(ctx context.Context, sess Session, required Role, whoami IdentityFunc) (Session, error) {
	logger := xglog.WithComponentFromContext(ctx, "auth")

	id, err := whoami(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			if lerr := s.Logout(); lerr != nil {
				logger.Warn().Err(lerr).Str(xglog.FieldEvent, "auth.logout_failed").Msg("failed to clear rejected session")
			}
			return Session{}, fmt.Errorf("verify session: %w", err)
		}
		return sess, fmt.Errorf("verify session: %w", err)
	}

	if id.Role != required {
		logger.Warn().
			Str(xglog.FieldEvent, "auth.role_mismatch").
			Str("required", string(required)).
			Str(xglog.FieldRole, string(id.Role)).
			Msg("backend reports a different role")
		return sess, &RoleError{Required: required, Actual: id.Role}
	}

	sess.Role = id.Role
	if id.UserID != 0 {
		sess.UserID = id.UserID
	}
	if id.Email != "" {
		sess.Email = id.Email
	}
	return sess, nil
}
