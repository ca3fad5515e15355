// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

// ListExercises returns the shared exercise catalogue.
func (c *Client) ListExercises(ctx context.Context) ([]Exercise, error) {
	var out struct {
		Exercises []Exercise `json:"exercises"`
	}
	err := c.getJSON(ctx, "exercises.list", "/exercises", &out)
	return out.Exercises, err
}

// MyExercises returns the exercises the signed-in physician authored.
func (c *Client) MyExercises(ctx context.Context) ([]Exercise, error) {
	var out struct {
		Exercises []Exercise `json:"exercises"`
	}
	err := c.getJSON(ctx, "exercises.mine", "/exercises/my-exercises", &out)
	return out.Exercises, err
}

// CreateExercise uploads a new exercise with its target image.
func (c *Client) CreateExercise(ctx context.Context, in NewExercise) error {
	parts, err := json.Marshal(in.TargetBodyParts)
	if err != nil {
		return &APIError{Sentinel: ErrValidation, Operation: "exercises.create", Err: err}
	}
	f := newForm()
	f.field("name", in.Name)
	f.field("category", in.Category)
	f.field("difficulty", in.Difficulty)
	f.field("target_body_parts", string(parts))
	f.file("target_image", in.TargetImage)
	return c.sendForm(ctx, "exercises.create", http.MethodPost, "/exercises/create", f, nil, nil)
}

// DeleteExercise removes an exercise the physician owns.
func (c *Client) DeleteExercise(ctx context.Context, exerciseID int64) error {
	return c.do(ctx, request{op: "exercises.delete", method: http.MethodDelete, path: "/exercises/" + itoa(exerciseID)}, nil)
}
