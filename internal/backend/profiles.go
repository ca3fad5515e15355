// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"net/http"
)

// PatientMe returns the signed-in patient's profile.
func (c *Client) PatientMe(ctx context.Context) (Patient, error) {
	var out struct {
		Patient Patient `json:"patient"`
	}
	err := c.getJSON(ctx, "patient.me", "/patient/me", &out)
	return out.Patient, err
}

// PhysicianMe returns the signed-in physician's profile.
func (c *Client) PhysicianMe(ctx context.Context) (Physician, error) {
	var out struct {
		Physician Physician `json:"physician"`
	}
	err := c.getJSON(ctx, "physician.me", "/physician/me", &out)
	return out.Physician, err
}

// UpdatePhysicianMe edits the signed-in physician's profile.
func (c *Client) UpdatePhysicianMe(ctx context.Context, in PhysicianUpdate) error {
	return c.sendJSON(ctx, "physician.update", http.MethodPut, "/physician/me", in, nil)
}

// UploadPhysicianPhoto replaces the profile photo and returns its URL.
func (c *Client) UploadPhysicianPhoto(ctx context.Context, up Upload) (string, error) {
	f := newForm()
	f.file("file", &up)
	var out struct {
		ProfilePhoto string `json:"profile_photo"`
	}
	err := c.sendForm(ctx, "physician.profile_photo", http.MethodPut, "/physician/me/profile-photo", f, nil, &out)
	return out.ProfilePhoto, err
}

// UploadCredentialPhoto replaces the credential photo and returns its URL.
func (c *Client) UploadCredentialPhoto(ctx context.Context, up Upload) (string, error) {
	f := newForm()
	f.file("file", &up)
	var out struct {
		CredentialPhoto string `json:"credential_photo"`
	}
	err := c.sendForm(ctx, "physician.credential_photo", http.MethodPut, "/physician/me/credential-photo", f, nil, &out)
	return out.CredentialPhoto, err
}

// ListPhysicians returns the public physician directory.
func (c *Client) ListPhysicians(ctx context.Context) ([]Physician, error) {
	var out struct {
		Physicians []Physician `json:"physicians"`
	}
	err := c.getJSON(ctx, "physicians.list", "/physicians", &out)
	return out.Physicians, err
}

// PhysicianPatient returns one subscribed patient's profile.
func (c *Client) PhysicianPatient(ctx context.Context, patientID int64) (Patient, error) {
	var out struct {
		Patient Patient `json:"patient"`
	}
	err := c.getJSON(ctx, "physician.patient", "/physician/patients/"+itoa(patientID), &out)
	return out.Patient, err
}
