// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"net/http"
)

// AdminStats returns platform totals.
func (c *Client) AdminStats(ctx context.Context) (AdminStats, error) {
	var out AdminStats
	err := c.getJSON(ctx, "admin.stats", "/admin/stats", &out)
	return out, err
}

// PhysicianAnalytics returns per-physician activity.
func (c *Client) PhysicianAnalytics(ctx context.Context) ([]PhysicianAnalytics, error) {
	var out struct {
		Analytics []PhysicianAnalytics `json:"analytics"`
	}
	err := c.getJSON(ctx, "admin.analytics", "/admin/analytics/physicians", &out)
	return out.Analytics, err
}

// PhysicianReport returns one physician's report.
func (c *Client) PhysicianReport(ctx context.Context, physicianID int64) (PhysicianReport, error) {
	var out PhysicianReport
	err := c.getJSON(ctx, "admin.report", "/admin/reports/physician/"+itoa(physicianID), &out)
	return out, err
}

// AdminPhysicians lists every physician account.
func (c *Client) AdminPhysicians(ctx context.Context) ([]Physician, error) {
	var out struct {
		Physicians []Physician `json:"physicians"`
	}
	err := c.getJSON(ctx, "admin.physicians", "/admin/physicians", &out)
	return out.Physicians, err
}

// AdminPhysician returns one physician's full profile.
func (c *Client) AdminPhysician(ctx context.Context, physicianID int64) (Physician, error) {
	var out struct {
		Physician Physician `json:"physician"`
	}
	err := c.getJSON(ctx, "admin.physician", "/admin/physicians/"+itoa(physicianID), &out)
	return out.Physician, err
}

// AdminPhysicianPatients lists a physician's patients.
func (c *Client) AdminPhysicianPatients(ctx context.Context, physicianID int64) ([]Patient, error) {
	var out struct {
		Patients []Patient `json:"patients"`
	}
	err := c.getJSON(ctx, "admin.physician_patients", "/admin/physicians/"+itoa(physicianID)+"/patients", &out)
	return out.Patients, err
}

// ApprovePhysician verifies a pending physician.
func (c *Client) ApprovePhysician(ctx context.Context, physicianID int64) error {
	return c.sendJSON(ctx, "admin.approve", http.MethodPost, "/admin/physicians/"+itoa(physicianID)+"/approve", nil, nil)
}

// RejectPhysician rejects a pending physician.
func (c *Client) RejectPhysician(ctx context.Context, physicianID int64) error {
	return c.sendJSON(ctx, "admin.reject", http.MethodPost, "/admin/physicians/"+itoa(physicianID)+"/reject", nil, nil)
}

// AdminUsers lists patient accounts.
func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Patients []User `json:"patients"`
	}
	err := c.getJSON(ctx, "admin.users", "/admin/users", &out)
	return out.Patients, err
}

// DisableUser deactivates an account.
func (c *Client) DisableUser(ctx context.Context, userID int64) error {
	return c.sendJSON(ctx, "admin.disable_user", http.MethodPatch, "/admin/users/"+itoa(userID)+"/disable", nil, nil)
}

// EnableUser reactivates an account.
func (c *Client) EnableUser(ctx context.Context, userID int64) error {
	return c.sendJSON(ctx, "admin.enable_user", http.MethodPatch, "/admin/users/"+itoa(userID)+"/enable", nil, nil)
}

// AuditLogs returns the admin audit trail.
func (c *Client) AuditLogs(ctx context.Context) ([]AuditLog, error) {
	var out struct {
		Logs []AuditLog `json:"logs"`
	}
	err := c.getJSON(ctx, "admin.audit_logs", "/admin/audit-logs", &out)
	return out.Logs, err
}
