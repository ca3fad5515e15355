// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns helper processes (ffmpeg, pose estimators) in their
// own process group and tears the whole group down.
package procgroup

import (
	"errors"
	"os/exec"
	"time"

	xglog "github.com/ManuGH/physio/internal/log"
)

// ErrKillFailed is returned when the group survived SIGKILL for the timeout.
var ErrKillFailed = errors.New("procgroup: kill failed")

// Set configures cmd to start as a process group leader.
// Must be called before cmd.Start.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate sends SIGTERM to the group of cmd, waits up to grace for exited
// to close, then sends SIGKILL and waits up to timeout more.
// exited must be closed by whoever calls cmd.Wait.
func Terminate(cmd *exec.Cmd, exited <-chan struct{}, grace, timeout time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	logger := xglog.WithComponent("procgroup")

	logger.Debug().Str("event", "procgroup.term").Int("pid", pid).Msg("terminating process group")
	if err := signalGroup(cmd, false); err != nil {
		logger.Debug().Err(err).Int("pid", pid).Msg("term signal failed")
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
	}

	logger.Warn().Str("event", "procgroup.kill").Int("pid", pid).Dur("grace", grace).Msg("grace period exceeded, killing process group")
	if err := signalGroup(cmd, true); err != nil {
		logger.Debug().Err(err).Int("pid", pid).Msg("kill signal failed")
	}
	select {
	case <-exited:
		return nil
	case <-time.After(timeout):
		return ErrKillFailed
	}
}
