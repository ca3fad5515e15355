// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/physio/internal/auth"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/pose"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, Token: "tok"})
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusConflict, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusTooManyRequests, ErrUnavailable},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{http.StatusInternalServerError, ErrUpstream},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.status), "status %d", tt.status)
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message envelope", `{"success":false,"message":"Email already registered"}`, "Email already registered"},
		{"string detail", `{"detail":"Invalid credentials"}`, "Invalid credentials"},
		{"validation list", `{"detail":[{"msg":"field required"},{"msg":"value is not a valid email"}]}`, "field required; value is not a valid email"},
		{"plain text", "Internal Server Error", "Internal Server Error"},
		{"empty object", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}

func TestClient_ErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.True(t, errors.Is(err, auth.ErrUnauthenticated), "401 must be recognizable by the auth layer")
	assert.Equal(t, "Could not validate credentials", Message(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "auth.me", apiErr.Operation)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Options{BaseURL: base, Timeout: time.Second})
	_, err := c.ListExercises(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListExercises(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_BadResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"exercises": "nope"`)
	})
	_, err := c.ListExercises(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.WriteString(w, `{"physicians":[{"physician_id":4,"full_name":"Dr. Lee"}]}`)
	})

	ctx := xglog.ContextWithRequestID(context.Background(), "req-123")
	docs, err := c.ListPhysicians(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(4), docs[0].PhysicianID)

	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "req-123", got.Get(HeaderRequestID))

	_, err = c.WithToken("").ListPhysicians(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
	assert.NotEmpty(t, got.Get(HeaderRequestID), "a request id is generated when none is in context")
}

func TestClient_StartExerciseSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/patient/exercises/42/start", r.URL.Path)
		_, _ = io.WriteString(w, `{"session_id":7,"exercise_id":3}`)
	})

	got, err := c.StartExerciseSession(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, SessionStart{SessionID: 7, ExerciseID: 3}, got)
}

func TestClient_StartExerciseSessionMissingIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"session_id":7}`)
	})
	_, err := c.StartExerciseSession(context.Background(), 42)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestClient_SubmitFrameImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exercises/3/sessions/7/frame", r.URL.Path)
		assert.Equal(t, "9", r.Header.Get(HeaderFrameSeq))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, data)
		assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))

		_, _ = io.WriteString(w, `{"repCount":4,"status":"RUNNING"}`)
	})

	res, err := c.SubmitFrameImage(context.Background(), 3, 7, 9, []byte{0xFF, 0xD8, 0xFF, 0xD9})
	require.NoError(t, err)
	require.NotNil(t, res.RepCount)
	assert.Equal(t, 4, *res.RepCount)
	assert.Equal(t, StatusRunning, res.Status)
}

func TestClient_SubmitFrameLandmarks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "5", r.Header.Get(HeaderFrameSeq))
		var rec pose.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		assert.Equal(t, int64(5), rec.Seq)
		assert.InDelta(t, 90, rec.Angles["left_elbow"], 1e-9)
		_, _ = io.WriteString(w, `{}`)
	})

	res, err := c.SubmitFrameLandmarks(context.Background(), 3, 7, pose.Record{
		Seq:       5,
		Timestamp: 1.5,
		Joints:    map[string]pose.Point{"left_elbow": {X: 0.4, Y: 0.5}},
		Angles:    map[string]float64{"left_elbow": 90},
	})
	require.NoError(t, err)
	assert.Nil(t, res.RepCount)
	assert.Empty(t, res.Status)
}

func TestClient_CaptureRepPassesThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exercises/11/capture-rep", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"angleRanges":{"left_elbow":{"min":30,"max":150}}}`)
	})

	out, err := c.CaptureRep(context.Background(), 11, []pose.Record{{Timestamp: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"angleRanges":{"left_elbow":{"min":30,"max":150}}}`, string(out))
}

func TestClient_RegisterPatientMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Ana", r.FormValue("full_name"))
		assert.Equal(t, "34", r.FormValue("age"))
		assert.Empty(t, r.FormValue("height_cm"), "unset optional fields are omitted")
		_, hdr, err := r.FormFile("profile_photo")
		require.NoError(t, err)
		assert.Equal(t, "me.png", hdr.Filename)
		_, _ = io.WriteString(w, `{"access_token":"new","user_id":9}`)
	})

	got, err := c.RegisterPatient(context.Background(), PatientSignup{
		FullName: "Ana", Email: "ana@example.com", Password: "pw", Age: 34, Gender: "female",
		ProfilePhoto: &Upload{Filename: "me.png", Data: []byte("\x89PNG\r\n\x1a\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "patient", got.Role)
}

func TestClient_RespondRequestValidatesDecision(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscription/physician/requests/5/accept", r.URL.Path)
	})
	require.NoError(t, c.RespondRequest(context.Background(), 5, Accept))
	require.ErrorIs(t, c.RespondRequest(context.Background(), 5, "maybe"), ErrValidation)
}

func TestClient_Identity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":3,"email":"doc@example.com","role":"physician"}`)
	})
	id, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: 3, Role: auth.RolePhysician, Email: "doc@example.com"}, id)
}

func TestClient_Metrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("admin.stats", "5xx"))
	_, err := c.AdminStats(context.Background())
	require.ErrorIs(t, err, ErrUpstream)
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("admin.stats", "5xx"))
	assert.Equal(t, before+1, after)
}
