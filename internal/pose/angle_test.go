// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point
		want    float64
	}{
		{"right angle", Point{X: 0, Y: 1}, Point{}, Point{X: 1, Y: 0}, 90},
		{"straight", Point{X: -1}, Point{}, Point{X: 1}, 180},
		{"folded", Point{X: 1}, Point{}, Point{X: 2}, 0},
		{"forty five", Point{X: 1, Y: 1}, Point{}, Point{X: 1}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Angle(tt.a, tt.b, tt.c)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAngle_Degenerate(t *testing.T) {
	_, ok := Angle(Point{X: 0.5, Y: 0.5}, Point{X: 0.5, Y: 0.5}, Point{X: 1})
	assert.False(t, ok)
}

func fullPose(vis float64) []Point {
	pts := make([]Point, LandmarkCount)
	for i := range pts {
		pts[i] = Point{X: 0.5, Y: 0.5, Visibility: vis}
	}
	// left arm: shoulder above elbow, wrist out to the side
	pts[LeftShoulder] = Point{X: 0.4, Y: 0.3, Visibility: vis}
	pts[LeftElbow] = Point{X: 0.4, Y: 0.5, Visibility: vis}
	pts[LeftWrist] = Point{X: 0.6, Y: 0.5, Visibility: vis}
	return pts
}

func TestDerive(t *testing.T) {
	triples := []Triple{
		{Name: "left_elbow", A: LeftShoulder, B: LeftElbow, C: LeftWrist},
		{Name: "left_shoulder", A: LeftElbow, B: LeftShoulder, C: VerticalRef},
	}
	rec, ok := Derive(fullPose(0.9), triples)
	require.True(t, ok)

	assert.Len(t, rec.Joints, LandmarkCount)
	assert.Equal(t, 0.4, rec.Joints["left_shoulder"].X)
	assert.InDelta(t, 90, rec.Angles["left_elbow"], 1e-9)
	// elbow hangs straight below the shoulder: opposite to the vertical reference
	assert.InDelta(t, 180, rec.Angles["left_shoulder"], 1e-9)
}

func TestDerive_SkipsInvisibleJoints(t *testing.T) {
	pts := fullPose(0.9)
	pts[LeftWrist].Visibility = 0.1

	rec, ok := Derive(pts, []Triple{
		{Name: "left_elbow", A: LeftShoulder, B: LeftElbow, C: LeftWrist},
		{Name: "left_shoulder", A: LeftElbow, B: LeftShoulder, C: VerticalRef},
	})
	require.True(t, ok)
	assert.NotContains(t, rec.Angles, "left_elbow")
	assert.Contains(t, rec.Angles, "left_shoulder")
}

func TestDerive_IncompletePose(t *testing.T) {
	_, ok := Derive(fullPose(0.9)[:20], nil)
	assert.False(t, ok)

	_, ok = Derive(fullPose(0.1), nil)
	assert.False(t, ok, "nothing visible means no record")
}

func TestIndex(t *testing.T) {
	i, ok := Index("left_elbow")
	require.True(t, ok)
	assert.Equal(t, LeftElbow, i)

	_, ok = Index("tail")
	assert.False(t, ok)
}
