// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID      = "session_id"
	FieldExerciseID     = "exercise_id"
	FieldPlanExerciseID = "plan_exercise_id"
	FieldRunID          = "run_id"
	FieldRequestID      = "request_id"
	FieldUserID         = "user_id"
	FieldRole           = "role"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Capture fields
	FieldSeq      = "seq"
	FieldRepCount = "rep_count"
	FieldDevice   = "device"
	FieldMode     = "mode"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Network fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
	FieldStatus  = "status"
)
