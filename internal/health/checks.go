// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/notify"
)

// PingChecker reports failure of a ping function with a fixed severity.
type PingChecker struct {
	name   string
	ping   func(context.Context) error
	onFail Status
}

// NewPingChecker wraps ping. A failing ping reports onFail.
func NewPingChecker(name string, ping func(context.Context) error, onFail Status) *PingChecker {
	return &PingChecker{name: name, ping: ping, onFail: onFail}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: c.onFail, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// SessionChecker reports whether someone is signed in. A missing session
// only degrades the console.
type SessionChecker struct {
	sessions auth.SessionLoader
}

func NewSessionChecker(sessions auth.SessionLoader) *SessionChecker {
	return &SessionChecker{sessions: sessions}
}

func (c *SessionChecker) Name() string { return "session" }

func (c *SessionChecker) Check(_ context.Context) CheckResult {
	sess, err := c.sessions.Load()
	switch {
	case errors.Is(err, auth.ErrNoSession):
		return CheckResult{Status: StatusDegraded, Message: "not signed in"}
	case err != nil:
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "signed in as " + sess.Role.String()}
}

// PollerChecker reports the freshness of the pending-request poller.
type PollerChecker struct {
	poller *notify.Poller
	maxAge time.Duration
	now    func() time.Time
}

// NewPollerChecker degrades once the last successful poll is older than maxAge.
func NewPollerChecker(p *notify.Poller, maxAge time.Duration) *PollerChecker {
	return &PollerChecker{poller: p, maxAge: maxAge, now: time.Now}
}

func (c *PollerChecker) Name() string { return "notify" }

func (c *PollerChecker) Check(_ context.Context) CheckResult {
	st := c.poller.Status()
	switch {
	case !st.Loaded:
		return CheckResult{Status: StatusDegraded, Message: "no poll completed yet"}
	case st.Error != "":
		return CheckResult{Status: StatusDegraded, Error: st.Error, Message: "last poll failed"}
	case c.maxAge > 0 && c.now().Sub(st.LastPoll) > c.maxAge:
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("last poll %s ago", c.now().Sub(st.LastPoll).Round(time.Second))}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d pending", st.Pending)}
}
