// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDirCamera_Replays(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), testJPEG(t, 4, 4), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.JPEG"), testJPEG(t, 8, 4), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	stream, err := DirCamera{Dir: dir, FPS: 100}.Open(context.Background())
	require.NoError(t, err)

	f, ok := stream.Latest()
	require.True(t, ok)
	assert.Equal(t, 4, f.Width)

	require.Eventually(t, func() bool {
		f, _ := stream.Latest()
		return f.Width == 8
	}, 2*time.Second, 5*time.Millisecond)

	tracks := stream.Tracks()
	require.Len(t, tracks, 1)
	tracks[0].Stop()
	tracks[0].Stop()
}

func TestDirCamera_Unavailable(t *testing.T) {
	_, err := DirCamera{Dir: t.TempDir()}.Open(context.Background())
	require.ErrorIs(t, err, ErrCameraUnavailable)

	_, err = DirCamera{Dir: filepath.Join(t.TempDir(), "missing")}.Open(context.Background())
	require.ErrorIs(t, err, ErrCameraUnavailable)
}
