// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ManuGH/physio/internal/auth"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs a patient or physician in.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.sendJSON(ctx, "auth.login", http.MethodPost, "/auth/login", credentials{email, password}, &out)
	return out, err
}

// AdminLogin signs an administrator in.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.sendJSON(ctx, "auth.login_admin", http.MethodPost, "/auth/login-admin", credentials{email, password}, &out)
	return out, err
}

// RegisterPatient creates a patient account and returns its token.
func (c *Client) RegisterPatient(ctx context.Context, in PatientSignup) (LoginResponse, error) {
	f := newForm()
	f.field("full_name", in.FullName)
	f.field("email", in.Email)
	f.field("password", in.Password)
	f.field("age", strconv.Itoa(in.Age))
	f.field("gender", in.Gender)
	f.optionalInt("height_cm", in.HeightCM)
	if in.WeightKG != 0 {
		f.field("weight_kg", strconv.FormatFloat(in.WeightKG, 'f', -1, 64))
	}
	f.optional("address", in.Address)
	f.optional("injury_description", in.InjuryDescription)
	f.optional("goals", in.Goals)
	f.file("profile_photo", in.ProfilePhoto)

	var out LoginResponse
	err := c.sendForm(ctx, "auth.register", http.MethodPost, "/auth/register", f, nil, &out)
	if err == nil && out.Role == "" {
		out.Role = string(auth.RolePatient)
	}
	return out, err
}

// RegisterPhysician submits a physician account for admin approval.
func (c *Client) RegisterPhysician(ctx context.Context, in PhysicianSignup) error {
	f := newForm()
	f.field("full_name", in.FullName)
	f.field("email", in.Email)
	f.field("password", in.Password)
	f.field("specialization", in.Specialization)
	f.optional("license_id", in.LicenseID)
	f.optionalInt("years_experience", in.YearsExperience)
	f.file("profile_photo", in.ProfilePhoto)
	f.file("credential_photo", in.CredentialPhoto)

	return c.sendForm(ctx, "auth.register_physician", http.MethodPost, "/auth/register-physician", f, nil, nil)
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.getJSON(ctx, "auth.me", "/auth/me", &out)
	return out, err
}

// Identity adapts Me for auth.Store.Verify.
func (c *Client) Identity(ctx context.Context) (auth.Identity, error) {
	u, err := c.Me(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: u.Identifier(), Role: auth.Role(u.Role), Email: u.Email}, nil
}
