// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ManuGH/physio/internal/pose"
)

// StartExerciseSession opens a scoring session for a patient exercise.
func (c *Client) StartExerciseSession(ctx context.Context, patientExerciseID int64) (SessionStart, error) {
	var out SessionStart
	err := c.sendJSON(ctx, "capture.start", http.MethodPost, "/patient/exercises/"+itoa(patientExerciseID)+"/start", nil, &out)
	if err == nil && (out.SessionID == 0 || out.ExerciseID == 0) {
		return out, &APIError{Sentinel: ErrBadResponse, Operation: "capture.start", Message: "missing session_id or exercise_id"}
	}
	return out, err
}

func framePath(exerciseID, sessionID int64) string {
	return "/exercises/" + itoa(exerciseID) + "/sessions/" + itoa(sessionID) + "/frame"
}

func seqHeader(seq int64) http.Header {
	h := http.Header{}
	h.Set(HeaderFrameSeq, strconv.FormatInt(seq, 10))
	return h
}

// SubmitFrameImage posts one JPEG frame.
func (c *Client) SubmitFrameImage(ctx context.Context, exerciseID, sessionID, seq int64, jpeg []byte) (FrameResult, error) {
	f := newForm()
	f.file("file", &Upload{Filename: "frame.jpg", ContentType: "image/jpeg", Data: jpeg})
	var out FrameResult
	err := c.sendForm(ctx, "capture.frame", http.MethodPost, framePath(exerciseID, sessionID), f, seqHeader(seq), &out)
	return out, err
}

// SubmitFrameLandmarks posts one derived pose record.
func (c *Client) SubmitFrameLandmarks(ctx context.Context, exerciseID, sessionID int64, rec pose.Record) (FrameResult, error) {
	data, err := jsonBody(rec)
	if err != nil {
		return FrameResult{}, &APIError{Sentinel: ErrValidation, Operation: "capture.frame", Err: err}
	}
	var out FrameResult
	err = c.do(ctx, request{
		op:          "capture.frame",
		method:      http.MethodPost,
		path:        framePath(exerciseID, sessionID),
		body:        data,
		contentType: "application/json",
		header:      seqHeader(rec.Seq),
	}, &out)
	return out, err
}

// EndExerciseSession closes the session and returns its summary.
func (c *Client) EndExerciseSession(ctx context.Context, exerciseID, sessionID int64) (SessionSummary, error) {
	var out SessionSummary
	path := "/exercises/" + itoa(exerciseID) + "/sessions/" + itoa(sessionID) + "/end"
	err := c.sendJSON(ctx, "capture.end", http.MethodPost, path, nil, &out)
	return out, err
}

// CaptureRep submits a physician's demonstrated rep.
func (c *Client) CaptureRep(ctx context.Context, exerciseID int64, frames []pose.Record) (RepCaptureResult, error) {
	body := struct {
		Frames []pose.Record `json:"frames"`
	}{Frames: frames}
	var out RepCaptureResult
	err := c.sendJSON(ctx, "capture.rep", http.MethodPost, "/exercises/"+itoa(exerciseID)+"/capture-rep", body, &out)
	return out, err
}
