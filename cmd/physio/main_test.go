// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv points the CLI at a temp data dir and a fake backend.
func testEnv(t *testing.T) (*backendtest.Server, string) {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	dataDir := t.TempDir()
	t.Setenv("PHYSIO_DATA", dataDir)
	t.Setenv("PHYSIO_BACKEND_URL", srv.URL)
	t.Setenv("PHYSIO_LOG_LEVEL", "error")
	t.Setenv("PHYSIO_PASSWORD", "")
	return srv, dataDir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args[:1:1], append([]string{"--env", ""}, args[1:]...)...)
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: physio")

	stderr.Reset()
	assert.Equal(t, exitUsage, run(context.Background(), []string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown command: frobnicate")

	stderr.Reset()
	assert.Equal(t, exitOK, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "rep-capture")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), version)
}

func TestLoginWhoamiLogout(t *testing.T) {
	srv, dataDir := testEnv(t)
	srv.Set(func(s *backendtest.Server) {
		s.Token = "tok-patient"
		s.Users["pat@example.com"] = backend.LoginResponse{AccessToken: "tok-patient", UserID: 5, Role: "patient"}
		s.Me = backend.User{UserID: 5, Role: "patient", Email: "pat@example.com"}
	})

	code, out, errOut := runCLI(t, "login", "--email", "pat@example.com", "--password", "secret")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Signed in as pat@example.com (patient, user 5)")

	sess, err := auth.NewStore(filepath.Join(dataDir, "session.json")).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-patient", sess.Token)

	code, out, errOut = runCLI(t, "whoami")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "pat@example.com (patient, user 5)")
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/auth/me"))

	code, out, _ = runCLI(t, "whoami", "--json")
	require.Equal(t, exitOK, code)
	assert.NotContains(t, out, "tok-patient")

	code, out, _ = runCLI(t, "logout")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Signed out")

	code, _, errOut = runCLI(t, "whoami")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, errOut, "Not signed in")
}

func TestLogin_BadCredentials(t *testing.T) {
	testEnv(t)

	code, _, errOut := runCLI(t, "login", "--email", "nobody@example.com", "--password", "x")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, errOut, "Invalid credentials")

	code, _, errOut = runCLI(t, "login", "--email", "nobody@example.com")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "--email and --password are required")
}

func TestWhoami_RejectedTokenClearsSession(t *testing.T) {
	srv, dataDir := testEnv(t)
	srv.Set(func(s *backendtest.Server) {
		s.Users["doc@example.com"] = backend.LoginResponse{AccessToken: "old", UserID: 9, Role: "physician"}
	})
	code, _, errOut := runCLI(t, "login", "--email", "doc@example.com", "--password", "pw")
	require.Equal(t, exitOK, code, errOut)

	srv.Set(func(s *backendtest.Server) { s.Token = "rotated" })
	code, _, errOut = runCLI(t, "whoami")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, errOut, "Please sign in again")

	_, err := os.Stat(filepath.Join(dataDir, "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRequests_AcceptRequiresPhysician(t *testing.T) {
	srv, _ := testEnv(t)
	srv.Set(func(s *backendtest.Server) {
		s.Users["doc@example.com"] = backend.LoginResponse{AccessToken: "tok-doc", UserID: 9, Role: "physician"}
		s.Users["pat@example.com"] = backend.LoginResponse{AccessToken: "tok-pat", UserID: 5, Role: "patient"}
		s.Requests = []backend.SubscriptionRequest{{RequestID: 41, PatientName: "Ana", Status: "pending"}}
	})

	code, _, errOut := runCLI(t, "login", "--email", "doc@example.com", "--password", "pw")
	require.Equal(t, exitOK, code, errOut)

	code, out, errOut := runCLI(t, "requests")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Ana")

	code, out, errOut = runCLI(t, "requests", "accept", "41")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Request 41 accepted")
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/requests/41/accept"))

	code, _, _ = runCLI(t, "requests", "accept")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "login", "--email", "pat@example.com", "--password", "pw")
	require.Equal(t, exitOK, code)
	code, _, errOut = runCLI(t, "requests", "reject", "41")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, errOut, "physician")
	assert.Equal(t, 0, srv.Count(http.MethodPost, "/requests/41/reject"))
}

func TestSession_ReplayCompletes(t *testing.T) {
	srv, dataDir := testEnv(t)

	replay := filepath.Join(dataDir, "replay")
	require.NoError(t, os.MkdirAll(replay, 0o750))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	require.NoError(t, os.WriteFile(filepath.Join(replay, "000.jpg"), buf.Bytes(), 0o600))

	t.Setenv("PHYSIO_CAMERA_SOURCE", "dir")
	t.Setenv("PHYSIO_REPLAY_DIR", replay)
	t.Setenv("PHYSIO_CAPTURE_INTERVAL", "100ms")

	srv.Set(func(s *backendtest.Server) {
		s.Users["pat@example.com"] = backend.LoginResponse{AccessToken: "tok", UserID: 5, Role: "patient"}
		s.Start = backend.SessionStart{SessionID: 7, ExerciseID: 3}
		s.Summary = backend.SessionSummary{Success: true, SessionID: 7, CompletedReps: 2, Accuracy: 91.5, DurationSec: 12}
		s.Frame = func(n int, _ int64) (backend.FrameResult, int) {
			reps := n
			if n >= 2 {
				return backend.FrameResult{RepCount: &reps, Status: backend.StatusCompleted}, http.StatusOK
			}
			return backend.FrameResult{RepCount: &reps, Status: backend.StatusRunning}, http.StatusOK
		}
	})
	code, _, errOut := runCLI(t, "login", "--email", "pat@example.com", "--password", "pw")
	require.Equal(t, exitOK, code, errOut)

	code, out, errOut := runCLI(t, "session", "12")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Session 7 (exercise 3): COMPLETED, 2 reps")
	assert.Contains(t, out, "accuracy 91.5%")
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/patient/exercises/12/start"))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/sessions/7/end"))

	code, out, errOut = runCLI(t, "history", "--json")
	require.Equal(t, exitOK, code, errOut)
	var hist struct {
		Runs []struct {
			SessionID int64  `json:"session_id"`
			Status    string `json:"status"`
		} `json:"runs"`
		Totals struct {
			Runs      int `json:"runs"`
			Completed int `json:"completed"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	require.Len(t, hist.Runs, 1)
	assert.Equal(t, int64(7), hist.Runs[0].SessionID)
	assert.Equal(t, "COMPLETED", hist.Runs[0].Status)
	assert.Equal(t, 1, hist.Totals.Completed)

	code, out, errOut = runCLI(t, "history", "--verify")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, ": ok")
}

func TestSession_WrongRole(t *testing.T) {
	srv, _ := testEnv(t)
	srv.Set(func(s *backendtest.Server) {
		s.Users["doc@example.com"] = backend.LoginResponse{AccessToken: "tok", UserID: 9, Role: "physician"}
	})
	code, _, _ := runCLI(t, "login", "--email", "doc@example.com", "--password", "pw")
	require.Equal(t, exitOK, code)

	code, _, errOut := runCLI(t, "session", "12")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, errOut, "Error:")
	assert.Equal(t, 0, srv.Count(http.MethodPost, "/patient/exercises/12/start"))

	code, _, _ = runCLI(t, "session")
	assert.Equal(t, exitUsage, code)
}
