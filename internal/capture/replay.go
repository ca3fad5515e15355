// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DirCamera replays the JPEG files of a directory in name order, looping.
type DirCamera struct {
	Dir string
	FPS int
}

// Open loads every frame up front and publishes the first one before returning.
func (c DirCamera) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	frames, err := loadReplayFrames(c.Dir)
	if err != nil {
		return nil, err
	}
	fps := c.FPS
	if fps <= 0 {
		fps = 15
	}

	t := &replayTrack{
		id:     "replay:" + filepath.Base(c.Dir),
		frames: frames,
		box:    newMailbox(),
		period: time.Second / time.Duration(fps),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	t.box.put(frames[0], time.Now())
	go t.loop()
	return &replayStream{track: t}, nil
}

func loadReplayFrames(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no jpeg files in %s", ErrCameraUnavailable, dir)
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		frames = append(frames, data)
	}
	return frames, nil
}

type replayStream struct {
	track *replayTrack
}

func (s *replayStream) Tracks() []Track { return []Track{s.track} }

func (s *replayStream) Latest() (Frame, bool) { return s.track.box.latest() }

type replayTrack struct {
	id     string
	frames [][]byte
	box    *mailbox
	period time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (t *replayTrack) ID() string { return t.id }

func (t *replayTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

func (t *replayTrack) loop() {
	defer close(t.done)
	tick := time.NewTicker(t.period)
	defer tick.Stop()
	next := 1
	for {
		select {
		case <-t.stop:
			return
		case now := <-tick.C:
			t.box.put(t.frames[next%len(t.frames)], now)
			next++
		}
	}
}
