// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ManuGH/physio/internal/auth"
)

func runAdmin(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("admin")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	_, api, err := a.session(auth.RoleAdmin)
	if err != nil {
		return a.fail(err)
	}

	verb := fs.Arg(0)
	idArg := func() (int64, bool) {
		if fs.NArg() != 2 {
			usageError(c, fs, "usage: physio admin %s <id>", verb)
			return 0, false
		}
		id, err := parseID(fs.Arg(1))
		if err != nil {
			usageError(c, fs, "%v", err)
			return 0, false
		}
		return id, true
	}

	switch verb {
	case "", "stats":
		stats, err := api.AdminStats(ctx)
		if err != nil {
			return a.fail(err)
		}
		if a.flags.json {
			return a.printJSON(stats)
		}
		return a.printTable(stats, []string{"USERS", "PATIENTS", "PHYSICIANS", "VERIFIED", "PENDING", "SESSIONS", "PLANS"}, [][]string{{
			strconv.Itoa(stats.TotalUsers), strconv.Itoa(stats.TotalPatients), strconv.Itoa(stats.TotalPhysicians),
			strconv.Itoa(stats.VerifiedPhysicians), strconv.Itoa(stats.PendingPhysicians),
			strconv.Itoa(stats.TotalSessions), strconv.Itoa(stats.TotalRehabPlans),
		}})
	case "analytics":
		rows, err := api.PhysicianAnalytics(ctx)
		if err != nil {
			return a.fail(err)
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				itoa(r.PhysicianID), r.FullName, strconv.Itoa(r.TotalPatients), strconv.Itoa(r.TotalSessions),
				strconv.Itoa(r.CompletedSessions), strconv.FormatFloat(r.CompletionRate, 'f', 1, 64),
			})
		}
		return a.printTable(rows, []string{"ID", "NAME", "PATIENTS", "SESSIONS", "COMPLETED", "RATE"}, table)
	case "users":
		rows, err := api.AdminUsers(ctx)
		if err != nil {
			return a.fail(err)
		}
		table := make([][]string, 0, len(rows))
		for _, u := range rows {
			active := "yes"
			if u.IsActive != nil && !*u.IsActive {
				active = "no"
			}
			table = append(table, []string{itoa(u.Identifier()), u.Email, u.Role, u.FullName, active})
		}
		return a.printTable(rows, []string{"ID", "EMAIL", "ROLE", "NAME", "ACTIVE"}, table)
	case "enable", "disable":
		id, valid := idArg()
		if !valid {
			return exitUsage
		}
		if verb == "enable" {
			err = api.EnableUser(ctx, id)
		} else {
			err = api.DisableUser(ctx, id)
		}
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "User %d %sd\n", id, verb)
		return exitOK
	case "physicians":
		if fs.NArg() == 2 {
			id, valid := idArg()
			if !valid {
				return exitUsage
			}
			p, err := api.AdminPhysician(ctx, id)
			if err != nil {
				return a.fail(err)
			}
			patients, err := api.AdminPhysicianPatients(ctx, id)
			if err != nil {
				return a.fail(err)
			}
			return a.printJSON(map[string]any{"physician": p, "patients": patients})
		}
		rows, err := api.AdminPhysicians(ctx)
		if err != nil {
			return a.fail(err)
		}
		table := make([][]string, 0, len(rows))
		for _, p := range rows {
			table = append(table, []string{
				itoa(physicianID(p)), p.FullName, p.Email, p.LicenseID, strconv.FormatBool(p.IsVerified), strconv.Itoa(p.PatientCount),
			})
		}
		return a.printTable(rows, []string{"ID", "NAME", "EMAIL", "LICENSE", "VERIFIED", "PATIENTS"}, table)
	case "approve", "reject":
		id, valid := idArg()
		if !valid {
			return exitUsage
		}
		if verb == "approve" {
			err = api.ApprovePhysician(ctx, id)
		} else {
			err = api.RejectPhysician(ctx, id)
		}
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Physician %d %sd\n", id, verb)
		return exitOK
	case "audit":
		rows, err := api.AuditLogs(ctx)
		if err != nil {
			return a.fail(err)
		}
		table := make([][]string, 0, len(rows))
		for _, l := range rows {
			table = append(table, []string{itoa(l.ID), l.CreatedAt, l.Action, l.TargetType, itoa(l.TargetID), l.Description})
		}
		return a.printTable(rows, []string{"ID", "AT", "ACTION", "TARGET", "TARGET_ID", "DESCRIPTION"}, table)
	case "report":
		id, valid := idArg()
		if !valid {
			return exitUsage
		}
		rep, err := api.PhysicianReport(ctx, id)
		if err != nil {
			return a.fail(err)
		}
		return a.printJSON(rep)
	default:
		return usageError(c, fs, "unknown verb %q (use stats, analytics, users, enable, disable, physicians, approve, reject, audit or report)", verb)
	}
}
