// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pose

import "math"

// VerticalRef in Triple.C selects a synthetic point straight above B.
const VerticalRef = -1

// verticalOffset is how far above the vertex the synthetic point sits.
const verticalOffset = 0.1

// MinVisibility is the threshold below which a landmark is treated as missing.
const MinVisibility = 0.5

// Triple names a joint angle measured at B between A and C.
type Triple struct {
	Name string
	A    int
	B    int
	C    int
}

// DefaultTriples are the joint angles derived when none are configured.
var DefaultTriples = []Triple{
	{Name: "left_elbow", A: LeftShoulder, B: LeftElbow, C: LeftWrist},
	{Name: "right_elbow", A: RightShoulder, B: RightElbow, C: RightWrist},
	{Name: "left_shoulder", A: LeftElbow, B: LeftShoulder, C: VerticalRef},
	{Name: "right_shoulder", A: RightElbow, B: RightShoulder, C: VerticalRef},
	{Name: "left_knee", A: LeftHip, B: LeftKnee, C: LeftAnkle},
	{Name: "right_knee", A: RightHip, B: RightKnee, C: RightAnkle},
	{Name: "left_hip", A: LeftShoulder, B: LeftHip, C: LeftKnee},
	{Name: "right_hip", A: RightShoulder, B: RightHip, C: RightKnee},
}

// Angle returns the angle at b in degrees, in [0,180]. It reports false
// when either arm has zero length.
func Angle(a, b, c Point) (float64, bool) {
	abx, aby := a.X-b.X, a.Y-b.Y
	cbx, cby := c.X-b.X, c.Y-b.Y

	magAB := math.Hypot(abx, aby)
	magCB := math.Hypot(cbx, cby)
	if magAB == 0 || magCB == 0 {
		return 0, false
	}

	cos := (abx*cbx + aby*cby) / (magAB * magCB)
	// float error can push cos just outside [-1,1]
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// Record is one sampled pose as posted to the backend.
type Record struct {
	Seq       int64              `json:"seq,omitempty"`
	Timestamp float64            `json:"timestamp"`
	Joints    map[string]Point   `json:"joints"`
	Angles    map[string]float64 `json:"angles"`
}

// Derive builds the joint map and the angles for triples whose landmarks are
// visible. It reports false when the pose is incomplete or no angle could be
// computed.
func Derive(landmarks []Point, triples []Triple) (Record, bool) {
	if len(landmarks) < LandmarkCount {
		return Record{}, false
	}
	if len(triples) == 0 {
		triples = DefaultTriples
	}

	rec := Record{
		Joints: make(map[string]Point, LandmarkCount),
		Angles: make(map[string]float64, len(triples)),
	}
	for i := 0; i < LandmarkCount; i++ {
		rec.Joints[Names[i]] = landmarks[i]
	}

	for _, t := range triples {
		a, okA := visible(landmarks, t.A)
		b, okB := visible(landmarks, t.B)
		if !okA || !okB {
			continue
		}
		var c Point
		if t.C == VerticalRef {
			c = Point{X: b.X, Y: b.Y - verticalOffset}
		} else {
			var okC bool
			if c, okC = visible(landmarks, t.C); !okC {
				continue
			}
		}
		if deg, ok := Angle(a, b, c); ok {
			rec.Angles[t.Name] = deg
		}
	}
	return rec, len(rec.Angles) > 0
}

func visible(landmarks []Point, idx int) (Point, bool) {
	if idx < 0 || idx >= len(landmarks) {
		return Point{}, false
	}
	p := landmarks[idx]
	return p, p.Visibility >= MinVisibility
}
