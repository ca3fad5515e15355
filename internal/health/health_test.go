// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type mockChecker struct {
	name    string
	status  Status
	message string
	err     string
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: m.message,
		Error:   m.err,
	}
}

type fetcherFunc func(ctx context.Context) ([]backend.SubscriptionRequest, error)

func (f fetcherFunc) PhysicianRequests(ctx context.Context) ([]backend.SubscriptionRequest, error) {
	return f(ctx)
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"degraded stays ready", []Checker{&mockChecker{name: "a", status: StatusDegraded}}, true, StatusDegraded},
		{"unhealthy wins", []Checker{
			&mockChecker{name: "a", status: StatusUnhealthy},
			&mockChecker{name: "b", status: StatusDegraded},
		}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(&mockChecker{name: "backend", status: StatusUnhealthy, err: "connection refused"})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, "connection refused", resp.Checks["backend"].Error)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("history", func(context.Context) error { return nil }, StatusUnhealthy)
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	bad := NewPingChecker("backend", func(context.Context) error { return errors.New("down") }, StatusDegraded)
	res := bad.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "down", res.Error)
	assert.Equal(t, "backend", bad.Name())
}

func TestSessionChecker(t *testing.T) {
	store := auth.NewStore(filepath.Join(t.TempDir(), "session.json"))
	c := NewSessionChecker(store)

	res := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "not signed in", res.Message)

	_, err := store.Login(auth.Session{Token: "tok", UserID: 3, Role: auth.RolePhysician, Email: "doc@example.com"})
	require.NoError(t, err)
	res = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "signed in as physician", res.Message)
}

func TestPollerChecker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fail := true
	calls := make(chan struct{}, 4)
	p := notify.New(fetcherFunc(func(context.Context) ([]backend.SubscriptionRequest, error) {
		defer func() { calls <- struct{}{} }()
		if fail {
			return nil, errors.New("backend down")
		}
		return []backend.SubscriptionRequest{{RequestID: 1}, {RequestID: 2}}, nil
	}), time.Hour, 0)
	c := NewPollerChecker(p, time.Minute)

	assert.Equal(t, "no poll completed yet", c.Check(context.Background()).Message)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	<-calls
	require.Eventually(t, func() bool { return p.Status().Loaded }, time.Second, 5*time.Millisecond)

	res := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "backend down", res.Error)

	fail = false
	p.Refresh()
	<-calls
	require.Eventually(t, func() bool { return p.Status().Error == "" }, time.Second, 5*time.Millisecond)
	res = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "2 pending", res.Message)

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	cancel()
	<-done
}
