// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth holds the signed-in principal and the role guard shared by
// the CLI and the local console.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is one of the three clinic roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePatient   Role = "patient"
	RolePhysician Role = "physician"
)

var (
	// ErrNoSession is returned when nobody is signed in.
	ErrNoSession = errors.New("auth: no active session")
	// ErrUnauthenticated marks a token the backend no longer accepts.
	ErrUnauthenticated = errors.New("auth: not authenticated")
	// ErrRoleMismatch is returned when the session role does not match the required one.
	ErrRoleMismatch = errors.New("auth: role mismatch")
	// ErrInvalidRole is returned for role strings outside the known set.
	ErrInvalidRole = errors.New("auth: invalid role")
)

// ParseRole normalizes s into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RolePatient, RolePhysician:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string { return string(r) }

// Session is the signed-in principal. It replaces the token/role/user id
// triple the web client kept in browser storage.
type Session struct {
	Token    string    `json:"token"`
	UserID   int64     `json:"user_id"`
	Role     Role      `json:"role"`
	Email    string    `json:"email,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// Valid reports whether the session carries a token and a known role.
func (s Session) Valid() bool {
	if strings.TrimSpace(s.Token) == "" {
		return false
	}
	_, err := ParseRole(string(s.Role))
	return err == nil
}

// Identity is what the backend reports for a token.
type Identity struct {
	UserID int64
	Role   Role
	Email  string
}

// RoleError describes a guard rejection.
type RoleError struct {
	Required Role
	Actual   Role
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("auth: role %q required, session has %q", e.Required, e.Actual)
}

func (e *RoleError) Unwrap() error { return ErrRoleMismatch }
