// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pose

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/procgroup"
	"github.com/rs/zerolog"
)

var (
	// ErrNoPose is returned when the estimator found no person in the frame.
	ErrNoPose = errors.New("pose: no pose detected")
	// ErrSidecarExited is returned once the estimator process is gone.
	ErrSidecarExited = errors.New("pose: estimator process exited")
	// ErrSidecarTimeout is returned when a frame was not answered in time.
	ErrSidecarTimeout = errors.New("pose: estimator timed out")
)

// SidecarConfig describes the estimator command.
type SidecarConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

type sidecarRequest struct {
	Seq   int64  `json:"seq"`
	Image string `json:"image"`
}

type sidecarResponse struct {
	Seq       int64   `json:"seq"`
	Landmarks []Point `json:"landmarks"`
	Error     string  `json:"error,omitempty"`
}

// Sidecar runs an external pose estimator and talks newline-delimited JSON
// over its stdin/stdout. One frame is in flight at a time.
type Sidecar struct {
	cfg    SidecarConfig
	logger zerolog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu  sync.Mutex // serializes Estimate
	seq int64

	responses chan sidecarResponse
	closing   chan struct{}
	exited    chan struct{}
	readers   sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// StartSidecar spawns the estimator process.
func StartSidecar(ctx context.Context, cfg SidecarConfig) (*Sidecar, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("pose: estimator command is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	// #nosec G204 -- estimator command is operator configuration
	cmd := exec.Command(cfg.Command, cfg.Args...)
	procgroup.Set(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("pose: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pose: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pose: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pose: start estimator: %w", err)
	}

	s := &Sidecar{
		cfg:       cfg,
		logger:    xglog.WithComponentFromContext(ctx, "pose"),
		cmd:       cmd,
		stdin:     stdin,
		responses: make(chan sidecarResponse, 4),
		closing:   make(chan struct{}),
		exited:    make(chan struct{}),
	}

	s.readers.Add(2)
	go s.readResponses(stdout)
	go s.logStderr(stderr)
	go s.waitProcess()

	s.logger.Info().
		Str(xglog.FieldEvent, "pose.sidecar_started").
		Str("command", cfg.Command).
		Int("pid", cmd.Process.Pid).
		Msg("pose estimator started")
	return s, nil
}

func (s *Sidecar) readResponses(stdout io.Reader) {
	defer s.readers.Done()
	defer close(s.responses)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp sidecarResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			s.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "pose.bad_response").
				Str("line", truncate(string(line), 120)).
				Msg("unparseable estimator output")
			continue
		}
		select {
		case s.responses <- resp:
		case <-s.closing:
			return
		}
	}
}

func (s *Sidecar) logStderr(stderr io.Reader) {
	defer s.readers.Done()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "[ERROR]"), strings.Contains(line, "[CRITICAL]"):
			s.logger.Error().Str(xglog.FieldEvent, "pose.stderr").Msg(line)
		case strings.Contains(line, "[WARN"):
			s.logger.Warn().Str(xglog.FieldEvent, "pose.stderr").Msg(line)
		default:
			s.logger.Debug().Str(xglog.FieldEvent, "pose.stderr").Msg(line)
		}
	}
}

// waitProcess reaps the estimator once both pipes are drained.
func (s *Sidecar) waitProcess() {
	s.readers.Wait()
	err := s.cmd.Wait()
	close(s.exited)
	if err != nil {
		s.logger.Debug().Err(err).Str(xglog.FieldEvent, "pose.sidecar_exited").Msg("pose estimator exited")
	}
}

// Estimate sends one JPEG frame and waits for its landmarks.
func (s *Sidecar) Estimate(ctx context.Context, jpeg []byte) ([]Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.exited:
		return nil, ErrSidecarExited
	default:
	}

	s.seq++
	seq := s.seq
	req, err := json.Marshal(sidecarRequest{Seq: seq, Image: base64.StdEncoding.EncodeToString(jpeg)})
	if err != nil {
		return nil, fmt.Errorf("pose: encode request: %w", err)
	}
	if _, err := s.stdin.Write(append(req, '\n')); err != nil {
		return nil, fmt.Errorf("pose: write request: %w", err)
	}

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrSidecarTimeout
		case resp, ok := <-s.responses:
			if !ok {
				return nil, ErrSidecarExited
			}
			if resp.Seq < seq {
				// answer to a frame that already timed out
				continue
			}
			if resp.Error != "" || len(resp.Landmarks) == 0 {
				return nil, ErrNoPose
			}
			return resp.Landmarks, nil
		}
	}
}

// Close stops the estimator: stdin is closed first, the process is killed
// if it has not exited after a grace period.
func (s *Sidecar) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.stdin.Close()
		select {
		case <-s.exited:
		case <-time.After(2 * time.Second):
			if err := procgroup.Terminate(s.cmd, s.exited, time.Second, 2*time.Second); err != nil {
				s.closeErr = fmt.Errorf("pose: stop estimator: %w", err)
			}
		}
		s.logger.Info().Str(xglog.FieldEvent, "pose.sidecar_stopped").Msg("pose estimator stopped")
	})
	return s.closeErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
