// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNoSession)

	saved, err := s.Login(Session{Token: "tok", UserID: 12, Role: RolePatient, Email: "p@example.com"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), saved.IssuedAt)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Logout())
	_, err = s.Load()
	require.ErrorIs(t, err, ErrNoSession)
	require.NoError(t, s.Logout(), "second logout is a no-op")
}

func TestStore_LoginRejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Login(Session{Token: "tok", Role: "nurse"})
	require.Error(t, err)
	_, err = os.Stat(s.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))
	_, err := s.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestStore_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("matching role refreshes identity", func(t *testing.T) {
		s := newTestStore(t)
		sess, err := s.Login(Session{Token: "tok", UserID: 1, Role: RolePhysician})
		require.NoError(t, err)

		got, err := s.Verify(ctx, sess, RolePhysician, func(context.Context) (Identity, error) {
			return Identity{UserID: 1, Role: RolePhysician, Email: "doc@example.com"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "doc@example.com", got.Email)
	})

	t.Run("role mismatch refuses but keeps session", func(t *testing.T) {
		s := newTestStore(t)
		sess, err := s.Login(Session{Token: "tok", UserID: 1, Role: RoleAdmin})
		require.NoError(t, err)

		_, err = s.Verify(ctx, sess, RoleAdmin, func(context.Context) (Identity, error) {
			return Identity{UserID: 1, Role: RolePatient}, nil
		})
		require.ErrorIs(t, err, ErrRoleMismatch)
		var re *RoleError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, RolePatient, re.Actual)

		_, err = s.Load()
		require.NoError(t, err)
	})

	t.Run("rejected token logs out", func(t *testing.T) {
		s := newTestStore(t)
		sess, err := s.Login(Session{Token: "tok", UserID: 1, Role: RolePatient})
		require.NoError(t, err)

		_, err = s.Verify(ctx, sess, RolePatient, func(context.Context) (Identity, error) {
			return Identity{}, fmt.Errorf("GET /auth/me: %w", ErrUnauthenticated)
		})
		require.ErrorIs(t, err, ErrUnauthenticated)
		_, err = s.Load()
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("transport failure keeps session", func(t *testing.T) {
		s := newTestStore(t)
		sess, err := s.Login(Session{Token: "tok", UserID: 1, Role: RolePatient})
		require.NoError(t, err)

		_, err = s.Verify(ctx, sess, RolePatient, func(context.Context) (Identity, error) {
			return Identity{}, errors.New("connection refused")
		})
		require.Error(t, err)
		_, err = s.Load()
		require.NoError(t, err)
	})
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Physician ")
	require.NoError(t, err)
	assert.Equal(t, RolePhysician, r)

	_, err = ParseRole("root")
	require.ErrorIs(t, err, ErrInvalidRole)
}
