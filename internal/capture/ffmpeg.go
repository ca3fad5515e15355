// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/procgroup"
	"github.com/rs/zerolog"
)

const (
	maxJPEGSize    = 8 << 20
	ffmpegStartup  = 5 * time.Second
	ffmpegGrace    = 2 * time.Second
	ffmpegKillWait = 2 * time.Second
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegCamera reads a local capture device through ffmpeg, which emits
// MJPEG on stdout.
type FFmpegCamera struct {
	Bin         string
	Device      string
	InputFormat string // v4l2, avfoundation, dshow
	Width       int
	Height      int
	FPS         int
	Quality     int // ffmpeg -q:v, 2 (best) .. 31
	// Args, when set, replaces the generated argument list.
	Args []string
	// MaxFrameSize caps one JPEG; a larger frame stops the track.
	MaxFrameSize int
}

// BuildArgs returns the ffmpeg command line for c.
func (c FFmpegCamera) BuildArgs() []string {
	if len(c.Args) > 0 {
		return append([]string(nil), c.Args...)
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if c.InputFormat != "" {
		args = append(args, "-f", c.InputFormat)
	}
	if c.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.FPS))
	}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	q := c.Quality
	if q <= 0 {
		q = 5
	}
	args = append(args,
		"-i", c.Device,
		"-an",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(q),
		"pipe:1",
	)
	return args
}

// Open starts ffmpeg and waits for the first frame.
func (c FFmpegCamera) Open(ctx context.Context) (Stream, error) {
	bin := c.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	logger := xglog.WithComponentFromContext(ctx, "camera").With().
		Str(xglog.FieldDevice, c.Device).Logger()

	cmd := exec.Command(bin, c.BuildArgs()...) // #nosec G204
	procgroup.Set(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	maxFrame := c.MaxFrameSize
	if maxFrame <= 0 {
		maxFrame = maxJPEGSize
	}
	t := &ffmpegTrack{
		id:       "video:" + c.Device,
		cmd:      cmd,
		box:      newMailbox(),
		maxFrame: maxFrame,
		exited:   make(chan struct{}),
		logger:   logger,
	}
	t.readers.Add(2)
	go t.readFrames(stdout)
	go t.logStderr(stderr)
	go t.wait()

	logger.Info().Str("event", "camera.start").Int("pid", cmd.Process.Pid).Msg("ffmpeg started")

	startup, cancel := context.WithTimeout(ctx, ffmpegStartup)
	defer cancel()
	select {
	case <-t.box.ready:
		return &ffmpegStream{track: t}, nil
	case <-t.exited:
		return nil, fmt.Errorf("%w: ffmpeg exited before the first frame: %s", ErrCameraUnavailable, t.lastError())
	case <-startup.Done():
		t.Stop()
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, startup.Err())
	}
}

type ffmpegStream struct {
	track *ffmpegTrack
}

func (s *ffmpegStream) Tracks() []Track       { return []Track{s.track} }
func (s *ffmpegStream) Latest() (Frame, bool) { return s.track.box.latest() }

type ffmpegTrack struct {
	id       string
	cmd      *exec.Cmd
	box      *mailbox
	maxFrame int
	readers  sync.WaitGroup
	exited   chan struct{}
	logger   zerolog.Logger

	errMu   sync.Mutex
	lastErr string

	stopOnce sync.Once
}

func (t *ffmpegTrack) ID() string { return t.id }

// Stop terminates the ffmpeg process group and waits for it to exit.
func (t *ffmpegTrack) Stop() {
	t.stopOnce.Do(func() {
		if err := procgroup.Terminate(t.cmd, t.exited, ffmpegGrace, ffmpegKillWait); err != nil {
			t.logger.Warn().Err(err).Str("event", "camera.stop_failed").Msg("ffmpeg did not exit")
			return
		}
		t.logger.Info().Str("event", "camera.stop").Msg("camera track stopped")
	})
}

func (t *ffmpegTrack) readFrames(r io.Reader) {
	defer t.readers.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(256<<10, t.maxFrame)), t.maxFrame)
	sc.Split(ScanJPEG)
	for sc.Scan() {
		// Scanner reuses its buffer.
		data := bytes.Clone(sc.Bytes())
		t.box.put(data, time.Now())
	}
	err := sc.Err()
	switch {
	case errors.Is(err, bufio.ErrTooLong):
		t.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "camera.frame_too_large").
			Int("limit_bytes", t.maxFrame).
			Msg("frame exceeds size limit, stopping camera")
		t.box.invalidate()
		// Stop waits for this reader to return.
		go t.Stop()
	case err != nil:
		t.logger.Debug().Err(err).Msg("frame reader stopped")
	}
}

func (t *ffmpegTrack) logStderr(r io.Reader) {
	defer t.readers.Done()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		t.errMu.Lock()
		t.lastErr = line
		t.errMu.Unlock()
		t.logger.Warn().Str("event", "camera.stderr").Msg(line)
	}
}

func (t *ffmpegTrack) wait() {
	t.readers.Wait()
	err := t.cmd.Wait()
	t.logger.Debug().Err(err).Str("event", "camera.exit").Msg("ffmpeg exited")
	close(t.exited)
}

func (t *ffmpegTrack) lastError() string {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.lastErr == "" {
		return "no output"
	}
	return t.lastErr
}

// ScanJPEG is a bufio.SplitFunc that yields complete JPEG images from a
// concatenated MJPEG stream. Bytes before a start marker are dropped.
func ScanJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF that may begin a marker.
		if n := len(data); n > 1 {
			return n - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
