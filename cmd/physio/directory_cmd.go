// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
)

func runPhysicians(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("physicians")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	_, api, err := a.session("")
	if err != nil {
		return a.fail(err)
	}
	rows, err := api.ListPhysicians(ctx)
	if err != nil {
		return a.fail(err)
	}
	table := make([][]string, 0, len(rows))
	for _, p := range rows {
		table = append(table, []string{
			itoa(physicianID(p)), p.FullName, p.Specialization, strconv.Itoa(p.YearsExperience), strconv.FormatBool(p.IsVerified),
		})
	}
	return a.printTable(rows, []string{"ID", "NAME", "SPECIALIZATION", "YEARS", "VERIFIED"}, table)
}

func physicianID(p backend.Physician) int64 {
	if p.PhysicianID != 0 {
		return p.PhysicianID
	}
	return p.UserID
}

func runSubscribe(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("subscribe")
	direct := fs.Bool("direct", false, "subscribe immediately instead of sending a request")
	leave := fs.Bool("leave", false, "unsubscribe from the current physician")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	_, api, err := a.session(auth.RolePatient)
	if err != nil {
		return a.fail(err)
	}

	if *leave {
		if err := api.Unsubscribe(ctx); err != nil {
			return a.fail(err)
		}
		fmt.Fprintln(a.stdout, "Unsubscribed")
		return exitOK
	}

	if fs.NArg() != 1 {
		return usageError(c, fs, "usage: physio subscribe [--direct] <physicianId> | --leave")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return usageError(c, fs, "%v", err)
	}
	if *direct {
		err = api.Subscribe(ctx, id)
	} else {
		err = api.RequestSubscription(ctx, id)
	}
	if err != nil {
		return a.fail(err)
	}
	if *direct {
		fmt.Fprintf(a.stdout, "Subscribed to physician %d\n", id)
	} else {
		fmt.Fprintf(a.stdout, "Request sent to physician %d\n", id)
	}
	return exitOK
}

func runRequests(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("requests")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	sess, api, err := a.session("")
	if err != nil {
		return a.fail(err)
	}

	verb := fs.Arg(0)
	switch verb {
	case "", "list":
		var rows []backend.SubscriptionRequest
		switch sess.Role {
		case auth.RolePhysician:
			rows, err = api.PhysicianRequests(ctx)
		case auth.RolePatient:
			rows, err = api.PatientRequests(ctx)
		default:
			return a.fail(&auth.RoleError{Required: auth.RolePhysician, Actual: sess.Role})
		}
		if err != nil {
			return a.fail(err)
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{itoa(r.RequestID), r.PatientName, itoa(r.PhysicianID), r.Status, r.CreatedAt})
		}
		return a.printTable(rows, []string{"ID", "PATIENT", "PHYSICIAN", "STATUS", "CREATED"}, table)
	case backend.Accept, backend.Reject:
		if sess.Role != auth.RolePhysician {
			return a.fail(&auth.RoleError{Required: auth.RolePhysician, Actual: sess.Role})
		}
		if fs.NArg() != 2 {
			return usageError(c, fs, "usage: physio requests %s <requestId>", verb)
		}
		id, err := parseID(fs.Arg(1))
		if err != nil {
			return usageError(c, fs, "%v", err)
		}
		if err := api.RespondRequest(ctx, id, verb); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Request %d %sed\n", id, verb)
		return exitOK
	default:
		return usageError(c, fs, "unknown verb %q (use list, accept or reject)", verb)
	}
}

func runPatients(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("patients")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	_, api, err := a.session(auth.RolePhysician)
	if err != nil {
		return a.fail(err)
	}

	if fs.NArg() == 1 {
		id, err := parseID(fs.Arg(0))
		if err != nil {
			return usageError(c, fs, "%v", err)
		}
		p, err := api.PhysicianPatient(ctx, id)
		if err != nil {
			return a.fail(err)
		}
		return a.printJSON(p)
	}

	rows, err := api.SubscribedPatients(ctx)
	if err != nil {
		return a.fail(err)
	}
	table := make([][]string, 0, len(rows))
	for _, p := range rows {
		table = append(table, []string{itoa(patientID(p)), p.FullName, strconv.Itoa(p.Age), p.Gender, p.InjuryDescription})
	}
	return a.printTable(rows, []string{"ID", "NAME", "AGE", "GENDER", "INJURY"}, table)
}

func patientID(p backend.Patient) int64 {
	if p.PatientID != 0 {
		return p.PatientID
	}
	return p.UserID
}
