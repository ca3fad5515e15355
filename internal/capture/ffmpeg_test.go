// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanJPEG(t *testing.T) {
	a := []byte{0xFF, 0xD8, 1, 2, 3, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0xFF, 0x00, 4, 0xFF, 0xD9}
	var stream []byte
	stream = append(stream, 0x00, 0x11) // garbage before the first marker
	stream = append(stream, a...)
	stream = append(stream, b...)
	stream = append(stream, 0xFF, 0xD8, 9) // truncated tail

	// A tiny reader buffer forces markers to straddle reads.
	sc := bufio.NewScanner(bufio.NewReaderSize(bytes.NewReader(stream), 16))
	sc.Buffer(make([]byte, 4), 1024)
	sc.Split(ScanJPEG)

	var got [][]byte
	for sc.Scan() {
		got = append(got, bytes.Clone(sc.Bytes()))
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])
}

func TestFFmpegCamera_BuildArgs(t *testing.T) {
	c := FFmpegCamera{Device: "/dev/video0", InputFormat: "v4l2", Width: 640, Height: 480, FPS: 15}
	args := c.BuildArgs()
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", "v4l2",
		"-framerate", "15",
		"-video_size", "640x480",
		"-i", "/dev/video0",
		"-an",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	}, args)

	custom := FFmpegCamera{Args: []string{"-i", "x"}}
	assert.Equal(t, []string{"-i", "x"}, custom.BuildArgs())
}

func TestFFmpegCamera_MissingBinary(t *testing.T) {
	_, err := FFmpegCamera{Bin: "/nonexistent/ffmpeg", Device: "/dev/video0"}.Open(context.Background())
	require.ErrorIs(t, err, ErrCameraUnavailable)
}

func TestMailbox_KeepsLatest(t *testing.T) {
	m := newMailbox()
	_, ok := m.latest()
	require.False(t, ok)

	img := testJPEG(t, 8, 6)
	m.put([]byte{1}, time.Unix(1, 0))
	m.put(img, time.Unix(2, 0))

	f, ok := m.latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), f.Seq)
	assert.Equal(t, img, f.Data)
	assert.Equal(t, 8, f.Width)
	assert.Equal(t, 6, f.Height)
	select {
	case <-m.ready:
	default:
		t.Fatal("ready not closed")
	}
}
