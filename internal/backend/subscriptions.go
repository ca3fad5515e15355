// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Request decisions.
const (
	Accept = "accept"
	Reject = "reject"
)

// RequestSubscription asks a physician to take the patient on.
func (c *Client) RequestSubscription(ctx context.Context, physicianID int64) error {
	return c.sendJSON(ctx, "subscription.request", http.MethodPost, "/subscription/request/"+itoa(physicianID), nil, nil)
}

// Subscribe subscribes the patient to a physician directly.
func (c *Client) Subscribe(ctx context.Context, physicianID int64) error {
	return c.sendJSON(ctx, "subscription.subscribe", http.MethodPost, "/subscription/subscribe/"+itoa(physicianID), nil, nil)
}

// Unsubscribe drops the patient's current physician.
func (c *Client) Unsubscribe(ctx context.Context) error {
	return c.sendJSON(ctx, "subscription.unsubscribe", http.MethodPost, "/subscription/unsubscribe", nil, nil)
}

// PatientRequests lists the patient's own subscription requests.
func (c *Client) PatientRequests(ctx context.Context) ([]SubscriptionRequest, error) {
	var out struct {
		Requests []SubscriptionRequest `json:"requests"`
	}
	err := c.getJSON(ctx, "subscription.patient_requests", "/subscription/patient/requests", &out)
	return out.Requests, err
}

// PhysicianRequests lists requests pending the physician's decision.
func (c *Client) PhysicianRequests(ctx context.Context) ([]SubscriptionRequest, error) {
	var out struct {
		Requests []SubscriptionRequest `json:"requests"`
	}
	err := c.getJSON(ctx, "subscription.physician_requests", "/subscription/physician/requests", &out)
	return out.Requests, err
}

// RespondRequest accepts or rejects a pending request.
func (c *Client) RespondRequest(ctx context.Context, requestID int64, decision string) error {
	if decision != Accept && decision != Reject {
		return &APIError{Sentinel: ErrValidation, Operation: "subscription.respond", Err: fmt.Errorf("decision must be %q or %q", Accept, Reject)}
	}
	path := "/subscription/physician/requests/" + itoa(requestID) + "/" + decision
	return c.sendJSON(ctx, "subscription.respond", http.MethodPost, path, nil, nil)
}

// SubscribedPatients lists the physician's patients.
func (c *Client) SubscribedPatients(ctx context.Context) ([]Patient, error) {
	var out struct {
		Patients []Patient `json:"patients"`
	}
	err := c.getJSON(ctx, "subscription.patients", "/subscription/patients", &out)
	return out.Patients, err
}
