// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/physio/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) PhysicianRequests(ctx context.Context) ([]backend.SubscriptionRequest, error) {
	args := m.Called(ctx)
	reqs, _ := args.Get(0).([]backend.SubscriptionRequest)
	return reqs, args.Error(1)
}

type MockClock struct {
	mu     sync.Mutex
	timer  *MockTimer
	resets []time.Duration
}

func (m *MockClock) Now() time.Time { return time.Unix(1700000000, 0) }

func (m *MockClock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer = &MockTimer{clock: m, CBox: make(chan time.Time, 1)}
	m.resets = append(m.resets, d)
	return m.timer
}

func (m *MockClock) Timer() *MockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer
}

func (m *MockClock) Resets() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.resets...)
}

type MockTimer struct {
	clock *MockClock
	CBox  chan time.Time
}

func (m *MockTimer) C() <-chan time.Time { return m.CBox }
func (m *MockTimer) Stop() bool          { return true }

func (m *MockTimer) Reset(d time.Duration) bool {
	m.clock.mu.Lock()
	m.clock.resets = append(m.clock.resets, d)
	m.clock.mu.Unlock()
	return true
}

func (m *MockTimer) Trigger() {
	select {
	case m.CBox <- time.Now():
	default:
	}
}

func pending(n int) []backend.SubscriptionRequest {
	out := make([]backend.SubscriptionRequest, n)
	for i := range out {
		out[i] = backend.SubscriptionRequest{RequestID: int64(i + 1), Status: "pending"}
	}
	return out
}

func startPoller(t *testing.T, p *Poller) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	}
}

func TestPoller_FirstFetchImmediateThenOnTimer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := new(MockFetcher)
	f.On("PhysicianRequests", mock.Anything).Return(pending(2), nil).Once()
	f.On("PhysicianRequests", mock.Anything).Return(pending(3), nil)

	clock := &MockClock{}
	p := New(f, time.Minute, 0, WithClock(clock))
	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	stop := startPoller(t, p)
	defer stop()

	assert.Equal(t, 2, <-updates)
	assert.True(t, p.Status().Loaded)

	require.Eventually(t, func() bool { return clock.Timer() != nil }, time.Second, time.Millisecond)
	clock.Timer().Trigger()
	assert.Equal(t, 3, <-updates)
	assert.Equal(t, 3, p.Count())
	assert.Equal(t, time.Minute, clock.Resets()[0])
}

func TestPoller_FailureResetsCount(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := new(MockFetcher)
	f.On("PhysicianRequests", mock.Anything).Return(pending(4), nil).Once()
	f.On("PhysicianRequests", mock.Anything).Return(nil, errors.New("backend down")).Once()

	clock := &MockClock{}
	p := New(f, time.Minute, 0, WithClock(clock))
	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	stop := startPoller(t, p)
	defer stop()

	assert.Equal(t, 4, <-updates)
	p.Refresh()
	assert.Equal(t, 0, <-updates)

	st := p.Status()
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, "backend down", st.Error)
	f.AssertNumberOfCalls(t, "PhysicianRequests", 2)
}

func TestPoller_RefreshDoesNotBlock(t *testing.T) {
	p := New(new(MockFetcher), time.Minute, 0)
	for i := 0; i < 10; i++ {
		p.Refresh()
	}
	assert.Len(t, p.refresh, 1)
}

func TestPoller_JitterBounds(t *testing.T) {
	tests := []struct {
		r    float64
		want time.Duration
	}{
		{0, 12 * time.Second},
		{0.5, 15 * time.Second},
		{0.9999999, 18 * time.Second},
	}
	for _, tt := range tests {
		p := New(nil, 15*time.Second, 0.2, WithRand(func() float64 { return tt.r }))
		assert.InDelta(t, float64(tt.want), float64(p.NextDelay()), float64(time.Millisecond), "r=%v", tt.r)
	}

	p := New(nil, 15*time.Second, 0.2)
	for i := 0; i < 1000; i++ {
		d := p.NextDelay()
		require.GreaterOrEqual(t, d, 12*time.Second)
		require.Less(t, d, 18*time.Second)
	}
}

func TestPoller_SetIntervalReschedules(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := new(MockFetcher)
	f.On("PhysicianRequests", mock.Anything).Return(pending(0), nil)
	clock := &MockClock{}
	p := New(f, time.Minute, 0, WithClock(clock))

	stop := startPoller(t, p)
	defer stop()
	require.Eventually(t, func() bool { return clock.Timer() != nil }, time.Second, time.Millisecond)

	p.SetInterval(5*time.Second, 0)
	require.Eventually(t, func() bool {
		r := clock.Resets()
		return r[len(r)-1] == 5*time.Second
	}, time.Second, time.Millisecond)
	assert.Equal(t, 5*time.Second, p.Interval())
	f.AssertNumberOfCalls(t, "PhysicianRequests", 1)
}

func TestPoller_Unsubscribe(t *testing.T) {
	p := New(new(MockFetcher), time.Minute, 0)
	_, cancel := p.Subscribe()
	require.Len(t, p.subs, 1)
	cancel()
	cancel()
	require.Empty(t, p.subs)
}
