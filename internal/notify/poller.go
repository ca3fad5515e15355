// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notify polls the backend for a physician's pending subscription
// requests.
package notify

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ManuGH/physio/internal/backend"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Defaults match the web client's 15s polling.
const (
	DefaultInterval = 15 * time.Second
	DefaultJitter   = 0.2
)

var (
	pendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "physio_notify_pending_requests",
		Help: "Pending subscription requests seen by the last poll.",
	})
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "physio_notify_polls_total",
		Help: "Pending-request polls by result (ok, error).",
	}, []string{"result"})
)

// Fetcher lists the physician's pending requests. *backend.Client implements it.
type Fetcher interface {
	PhysicianRequests(ctx context.Context) ([]backend.SubscriptionRequest, error)
}

// Poller keeps the pending-request count fresh.
type Poller struct {
	fetch  Fetcher
	clock  Clock
	rand   func() float64
	logger zerolog.Logger

	mu       sync.Mutex
	interval time.Duration
	jitter   float64
	count    int
	loaded   bool
	lastErr  error
	lastPoll time.Time
	subs     map[int]chan int
	nextSub  int

	refresh chan struct{}
	resched chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces the real clock.
func WithClock(c Clock) Option { return func(p *Poller) { p.clock = c } }

// WithRand replaces the jitter source; fn returns values in [0,1).
func WithRand(fn func() float64) Option { return func(p *Poller) { p.rand = fn } }

// New builds a poller. Non-positive interval or negative jitter fall back to defaults.
func New(f Fetcher, interval time.Duration, jitter float64, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if jitter < 0 {
		jitter = DefaultJitter
	}
	p := &Poller{
		fetch:    f,
		clock:    RealClock{},
		rand:     rand.Float64,
		logger:   xglog.WithComponent("notify"),
		interval: interval,
		jitter:   jitter,
		subs:     map[int]chan int{},
		refresh:  make(chan struct{}, 1),
		resched:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run fetches immediately, then on every jittered interval, on Refresh, and
// after SetInterval. It returns when ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Str(xglog.FieldEvent, "notify.start").Dur("interval", p.Interval()).Msg("pending request poller started")
	p.poll(ctx)

	timer := p.clock.NewTimer(p.NextDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Str(xglog.FieldEvent, "notify.stop").Msg("pending request poller stopped")
			return ctx.Err()
		case <-timer.C():
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
			if !timer.Stop() {
				drain(timer)
			}
		case <-p.resched:
			if !timer.Stop() {
				drain(timer)
			}
		}
		timer.Reset(p.NextDelay())
	}
}

func drain(t Timer) {
	select {
	case <-t.C():
	default:
	}
}

func (p *Poller) poll(ctx context.Context) {
	reqs, err := p.fetch.PhysicianRequests(ctx)
	if ctx.Err() != nil {
		return
	}
	n := len(reqs)
	if err != nil {
		// A failed fetch reads as zero pending.
		n = 0
		pollsTotal.WithLabelValues("error").Inc()
		p.logger.Warn().Err(err).Str(xglog.FieldEvent, "notify.fetch_failed").Msg("failed to fetch pending requests")
	} else {
		pollsTotal.WithLabelValues("ok").Inc()
	}
	pendingGauge.Set(float64(n))

	p.mu.Lock()
	changed := n != p.count || !p.loaded
	p.count = n
	p.loaded = true
	p.lastErr = err
	p.lastPoll = p.clock.Now()
	if changed {
		for _, ch := range p.subs {
			offer(ch, n)
		}
	}
	p.mu.Unlock()

	if changed {
		p.logger.Debug().Str(xglog.FieldEvent, "notify.count").Int("pending", n).Msg("pending request count changed")
	}
}

// offer replaces any unread value with v.
func offer(ch chan int, v int) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Refresh requests an immediate poll. It never blocks.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// SetInterval changes the period and jitter; the running loop reschedules.
func (p *Poller) SetInterval(interval time.Duration, jitter float64) {
	if interval <= 0 {
		return
	}
	p.mu.Lock()
	changed := interval != p.interval || jitter != p.jitter
	p.interval = interval
	p.jitter = jitter
	p.mu.Unlock()
	if !changed {
		return
	}
	p.logger.Info().Str(xglog.FieldEvent, "notify.interval").Dur("interval", interval).Float64("jitter", jitter).Msg("poll interval changed")
	select {
	case p.resched <- struct{}{}:
	default:
	}
}

// Interval returns the configured base period.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// NextDelay returns interval scaled by a uniform factor in [1-jitter, 1+jitter).
func (p *Poller) NextDelay() time.Duration {
	p.mu.Lock()
	interval, jitter := p.interval, p.jitter
	p.mu.Unlock()
	if jitter <= 0 {
		return interval
	}
	factor := 1 + jitter*(2*p.rand()-1)
	return time.Duration(float64(interval) * factor)
}

// Status is a point-in-time view of the poller.
type Status struct {
	Pending  int       `json:"pending"`
	Loaded   bool      `json:"loaded"`
	LastPoll time.Time `json:"last_poll,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Status returns the latest poll result.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{Pending: p.count, Loaded: p.loaded, LastPoll: p.lastPoll}
	if p.lastErr != nil {
		st.Error = p.lastErr.Error()
	}
	return st
}

// Count returns the pending count from the last poll.
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Subscribe returns a channel that receives the count whenever it changes.
// Slow readers only see the newest value. Call cancel to unsubscribe.
func (p *Poller) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 1)
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	if p.loaded {
		ch <- p.count
	}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}
