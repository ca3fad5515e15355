// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pose

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestHelperProcess is not a real test; it plays the estimator when the
// test binary is re-executed by startFake.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("PHYSIO_POSE_HELPER") != "1" {
		return
	}
	mode := os.Getenv("PHYSIO_POSE_HELPER_MODE")
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 4*1024*1024)
	out := json.NewEncoder(os.Stdout)

	for in.Scan() {
		var req sidecarRequest
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			fmt.Fprintln(os.Stderr, "[ERROR] bad request")
			continue
		}
		img, _ := base64.StdEncoding.DecodeString(req.Image)
		switch {
		case mode == "silent":
			continue
		case string(img) == "empty":
			_ = out.Encode(sidecarResponse{Seq: req.Seq, Error: "no person"})
		default:
			pts := make([]Point, LandmarkCount)
			for i := range pts {
				pts[i] = Point{X: float64(len(img)) / 100, Y: 0.5, Visibility: 1}
			}
			_ = out.Encode(sidecarResponse{Seq: req.Seq, Landmarks: pts})
		}
	}
	os.Exit(0)
}

func startFake(t *testing.T, mode string, timeout time.Duration) *Sidecar {
	t.Helper()
	t.Setenv("PHYSIO_POSE_HELPER", "1")
	t.Setenv("PHYSIO_POSE_HELPER_MODE", mode)

	s, err := StartSidecar(context.Background(), SidecarConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess"},
		Timeout: timeout,
	})
	require.NoError(t, err)
	return s
}

func TestSidecar_Estimate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := startFake(t, "", 5*time.Second)
	defer func() { require.NoError(t, s.Close()) }()

	pts, err := s.Estimate(context.Background(), []byte("12345"))
	require.NoError(t, err)
	require.Len(t, pts, LandmarkCount)
	assert.InDelta(t, 0.05, pts[0].X, 1e-9)

	_, err = s.Estimate(context.Background(), []byte("empty"))
	require.ErrorIs(t, err, ErrNoPose)
}

func TestSidecar_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := startFake(t, "silent", 100*time.Millisecond)
	defer func() { _ = s.Close() }()

	_, err := s.Estimate(context.Background(), []byte("frame"))
	require.ErrorIs(t, err, ErrSidecarTimeout)
}

func TestSidecar_EstimateAfterClose(t *testing.T) {
	s := startFake(t, "", time.Second)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err := s.Estimate(context.Background(), []byte("frame"))
	require.ErrorIs(t, err, ErrSidecarExited)
}

func TestStartSidecar_RequiresCommand(t *testing.T) {
	_, err := StartSidecar(context.Background(), SidecarConfig{})
	require.Error(t, err)
}
