// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"net/http"
)

// CreatePlan opens a rehab plan for a patient.
func (c *Client) CreatePlan(ctx context.Context, patientID int64, notes string) (int64, error) {
	var out struct {
		RehabPlanID int64 `json:"rehab_plan_id"`
		ID          int64 `json:"id"`
	}
	body := map[string]string{"notes": notes}
	if err := c.sendJSON(ctx, "rehab.create_plan", http.MethodPost, "/rehab/patients/"+itoa(patientID)+"/plans", body, &out); err != nil {
		return 0, err
	}
	if out.RehabPlanID != 0 {
		return out.RehabPlanID, nil
	}
	return out.ID, nil
}

// CurrentPlan returns the patient's active plan, or nil when there is none.
func (c *Client) CurrentPlan(ctx context.Context, patientID int64) (*RehabPlan, error) {
	var out struct {
		RehabPlan *RehabPlan `json:"rehab_plan"`
	}
	err := c.getJSON(ctx, "rehab.current_plan", "/rehab/patients/"+itoa(patientID)+"/plans/current", &out)
	return out.RehabPlan, err
}

// PlanExercises lists the exercises attached to a plan.
func (c *Client) PlanExercises(ctx context.Context, planID int64) ([]PlanExercise, error) {
	var out struct {
		Exercises []PlanExercise `json:"exercises"`
	}
	err := c.getJSON(ctx, "rehab.plan_exercises", "/rehab/plans/"+itoa(planID)+"/exercises", &out)
	return out.Exercises, err
}

// AddPlanExercise attaches an exercise to a plan.
func (c *Client) AddPlanExercise(ctx context.Context, planID int64, in PlanExerciseInput) error {
	return c.sendJSON(ctx, "rehab.add_exercise", http.MethodPost, "/rehab/plans/"+itoa(planID)+"/exercises", in, nil)
}

// RemovePlanExercise detaches an exercise from a plan.
func (c *Client) RemovePlanExercise(ctx context.Context, planID, planExerciseID int64) error {
	path := "/rehab/plans/" + itoa(planID) + "/exercises/" + itoa(planExerciseID) + "/remove"
	return c.sendJSON(ctx, "rehab.remove_exercise", http.MethodPost, path, nil, nil)
}

// AssignExercise uses the sets/reps/frequency assignment route.
func (c *Client) AssignExercise(ctx context.Context, planID int64, in AssignInput) error {
	return c.sendJSON(ctx, "rehab.assign_exercise", http.MethodPost, "/rehab-plans/"+itoa(planID)+"/assign-exercise", in, nil)
}

// PatientExercises lists the signed-in patient's assigned exercises.
func (c *Client) PatientExercises(ctx context.Context) ([]PatientExercise, error) {
	var out struct {
		Exercises []PatientExercise `json:"exercises"`
	}
	err := c.getJSON(ctx, "patient.exercises", "/patient/exercises", &out)
	return out.Exercises, err
}
