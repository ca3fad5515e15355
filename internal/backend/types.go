// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import "encoding/json"

// Session status values reported by the frame endpoint.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
)

// LoginResponse is returned by login and patient registration.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	UserID      int64  `json:"user_id"`
	Role        string `json:"role"`
}

// User is the /auth/me view and the admin user listing row.
type User struct {
	ID                int64   `json:"id,omitempty"`
	UserID            int64   `json:"user_id,omitempty"`
	Email             string  `json:"email"`
	Role              string  `json:"role,omitempty"`
	FullName          string  `json:"full_name,omitempty"`
	Age               int     `json:"age,omitempty"`
	Gender            string  `json:"gender,omitempty"`
	Phone             string  `json:"phone,omitempty"`
	HeightCM          int     `json:"height_cm,omitempty"`
	WeightKG          float64 `json:"weight_kg,omitempty"`
	InjuryDescription string  `json:"injury_description,omitempty"`
	Goals             string  `json:"goals,omitempty"`
	ProfilePhoto      string  `json:"profile_photo,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
	CreatedAt         string  `json:"created_at,omitempty"`
}

// Identifier returns whichever id field the endpoint filled.
func (u User) Identifier() int64 {
	if u.UserID != 0 {
		return u.UserID
	}
	return u.ID
}

// Patient is a patient profile.
type Patient struct {
	PatientID         int64   `json:"patient_id,omitempty"`
	UserID            int64   `json:"user_id,omitempty"`
	FullName          string  `json:"full_name"`
	Email             string  `json:"email,omitempty"`
	Age               int     `json:"age,omitempty"`
	Gender            string  `json:"gender,omitempty"`
	HeightCM          int     `json:"height_cm,omitempty"`
	WeightKG          float64 `json:"weight_kg,omitempty"`
	Address           string  `json:"address,omitempty"`
	InjuryDescription string  `json:"injury_description,omitempty"`
	Goals             string  `json:"goals,omitempty"`
	ProfilePhoto      string  `json:"profile_photo,omitempty"`
	PhysicianID       *int64  `json:"physician_id,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

// Physician is a physician profile.
type Physician struct {
	PhysicianID     int64  `json:"physician_id,omitempty"`
	UserID          int64  `json:"user_id,omitempty"`
	FullName        string `json:"full_name"`
	Email           string `json:"email,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	LicenseID       string `json:"license_id,omitempty"`
	YearsExperience int    `json:"years_experience,omitempty"`
	Bio             string `json:"bio,omitempty"`
	ProfilePhoto    string `json:"profile_photo,omitempty"`
	CredentialPhoto string `json:"credential_photo,omitempty"`
	IsVerified      bool   `json:"is_verified,omitempty"`
	IsActive        *bool  `json:"is_active,omitempty"`
	PatientCount    int    `json:"patient_count,omitempty"`
}

// PhysicianUpdate is the editable subset of a physician profile.
type PhysicianUpdate struct {
	FullName        *string `json:"full_name,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	LicenseID       *string `json:"license_id,omitempty"`
	YearsExperience *int    `json:"years_experience,omitempty"`
	Bio             *string `json:"bio,omitempty"`
}

// Exercise is a physician-authored exercise definition.
type Exercise struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty"`
	TargetBodyParts []string `json:"target_body_parts,omitempty"`
	TargetImage     string   `json:"target_image,omitempty"`
}

// RehabPlan is a patient's current plan.
type RehabPlan struct {
	ID          int64  `json:"id"`
	PatientID   int64  `json:"patient_id,omitempty"`
	PhysicianID int64  `json:"physician_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// PlanExercise is an exercise attached to a rehab plan.
type PlanExercise struct {
	PlanExerciseID int64  `json:"plan_exercise_id"`
	ExerciseID     int64  `json:"exercise_id,omitempty"`
	ExerciseName   string `json:"exercise_name,omitempty"`
	TargetReps     int    `json:"target_reps,omitempty"`
	TargetSets     int    `json:"target_sets,omitempty"`
	MaxDuration    int    `json:"max_duration,omitempty"`
}

// PlanExerciseInput adds an exercise to a plan.
type PlanExerciseInput struct {
	ExerciseID  int64 `json:"exercise_id"`
	TargetSets  int   `json:"target_sets"`
	TargetReps  int   `json:"target_reps"`
	MaxDuration int   `json:"max_duration"`
}

// AssignInput is the legacy assign-exercise body.
type AssignInput struct {
	ExerciseID      int64 `json:"exercise_id"`
	Sets            int   `json:"sets"`
	Reps            int   `json:"reps"`
	FrequencyPerDay int   `json:"frequency_per_day"`
}

// PatientExercise is an exercise assigned to the signed-in patient.
type PatientExercise struct {
	PatientExerciseID int64  `json:"patient_exercise_id"`
	ExerciseID        int64  `json:"exercise_id,omitempty"`
	Name              string `json:"name"`
	Sets              int    `json:"sets,omitempty"`
	Reps              int    `json:"reps,omitempty"`
	FrequencyPerDay   int    `json:"frequency_per_day,omitempty"`
}

// SubscriptionRequest links a patient to a physician pending approval.
type SubscriptionRequest struct {
	RequestID   int64  `json:"request_id"`
	PatientID   int64  `json:"patient_id,omitempty"`
	PhysicianID int64  `json:"physician_id,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// AuditLog is one admin audit trail entry.
type AuditLog struct {
	ID          int64  `json:"id"`
	Action      string `json:"action"`
	TargetType  string `json:"target_type,omitempty"`
	TargetID    int64  `json:"target_id,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// AdminStats are the platform totals on the admin dashboard.
type AdminStats struct {
	TotalUsers         int `json:"total_users"`
	TotalPatients      int `json:"total_patients"`
	TotalPhysicians    int `json:"total_physicians"`
	VerifiedPhysicians int `json:"verified_physicians"`
	PendingPhysicians  int `json:"pending_physicians"`
	TotalSessions      int `json:"total_sessions"`
	TotalRehabPlans    int `json:"total_rehab_plans"`
}

// PhysicianAnalytics is one physician's activity row.
type PhysicianAnalytics struct {
	PhysicianID       int64   `json:"physician_id"`
	FullName          string  `json:"full_name,omitempty"`
	TotalPatients     int     `json:"total_patients"`
	TotalSessions     int     `json:"total_sessions"`
	CompletedSessions int     `json:"completed_sessions"`
	CompletionRate    float64 `json:"completion_rate"`
}

// PhysicianReport is the per-physician admin report.
type PhysicianReport struct {
	PhysicianID       int64  `json:"physician_id"`
	GeneratedAt       string `json:"generated_at,omitempty"`
	TotalSessions     int    `json:"total_sessions"`
	CompletedSessions int    `json:"completed_sessions"`
}

// SessionStart is the start-exercise-session response.
type SessionStart struct {
	SessionID  int64 `json:"session_id"`
	ExerciseID int64 `json:"exercise_id"`
}

// FrameResult is the per-frame feedback. Both fields are optional.
type FrameResult struct {
	RepCount *int   `json:"repCount,omitempty"`
	Status   string `json:"status,omitempty"`
}

// SessionSummary is the end-session response.
type SessionSummary struct {
	Success       bool    `json:"success"`
	SessionID     int64   `json:"session_id"`
	CompletedReps int     `json:"completed_reps"`
	Accuracy      float64 `json:"accuracy"`
	DurationSec   float64 `json:"duration_sec"`
}

// RepCaptureResult is the backend's analysis of a demonstrated rep; its
// shape is owned by the backend and passed through verbatim.
type RepCaptureResult = json.RawMessage

// Upload is a file part in a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PatientSignup is the patient registration form.
type PatientSignup struct {
	FullName          string
	Email             string
	Password          string
	Age               int
	Gender            string
	HeightCM          int
	WeightKG          float64
	Address           string
	InjuryDescription string
	Goals             string
	ProfilePhoto      *Upload
}

// PhysicianSignup is the physician registration form.
type PhysicianSignup struct {
	FullName        string
	Email           string
	Password        string
	Specialization  string
	LicenseID       string
	YearsExperience int
	ProfilePhoto    *Upload
	CredentialPhoto *Upload
}

// NewExercise is the create-exercise form.
type NewExercise struct {
	Name            string
	Category        string
	Difficulty      string
	TargetBodyParts []string
	TargetImage     *Upload
}
