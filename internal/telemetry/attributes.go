// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared across spans.
const (
	// Capture attributes
	CaptureRunIDKey          = "capture.run_id"
	CaptureSessionIDKey      = "capture.session_id"
	CaptureExerciseIDKey     = "capture.exercise_id"
	CapturePlanExerciseIDKey = "capture.plan_exercise_id"
	CaptureModeKey           = "capture.mode"
	CaptureStatusKey         = "capture.status"
	CaptureRepCountKey       = "capture.rep_count"
	CaptureFramesSentKey     = "capture.frames_sent"

	// Identity attributes
	UserRoleKey = "user.role"
	UserIDKey   = "user.id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// CaptureAttributes describes a capture session. Zero ids are omitted.
func CaptureAttributes(runID string, planExerciseID, sessionID, exerciseID int64, mode string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if runID != "" {
		attrs = append(attrs, attribute.String(CaptureRunIDKey, runID))
	}
	if planExerciseID != 0 {
		attrs = append(attrs, attribute.Int64(CapturePlanExerciseIDKey, planExerciseID))
	}
	if sessionID != 0 {
		attrs = append(attrs, attribute.Int64(CaptureSessionIDKey, sessionID))
	}
	if exerciseID != 0 {
		attrs = append(attrs, attribute.Int64(CaptureExerciseIDKey, exerciseID))
	}
	if mode != "" {
		attrs = append(attrs, attribute.String(CaptureModeKey, mode))
	}
	return attrs
}

// CaptureResultAttributes describes how a session ended.
func CaptureResultAttributes(status string, repCount int, framesSent int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CaptureStatusKey, status),
		attribute.Int(CaptureRepCountKey, repCount),
		attribute.Int64(CaptureFramesSentKey, framesSent),
	}
}

// IdentityAttributes describes the caller.
func IdentityAttributes(role string, userID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(UserRoleKey, role),
		attribute.Int64(UserIDKey, userID),
	}
}

// ErrorAttributes marks a span as failed with a short error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError records err on the span in ctx and sets the error status.
func RecordError(ctx context.Context, err error, errorType string) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(ErrorAttributes(errorType)...)
}
