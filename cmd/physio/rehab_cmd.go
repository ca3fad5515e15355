// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
)

func runPlan(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("plan")
	notes := fs.String("notes", "", "plan notes (create)")
	sets := fs.Int("sets", 3, "target sets (add, assign)")
	reps := fs.Int("reps", 10, "target reps (add, assign)")
	maxDuration := fs.Int("max-duration", 0, "max duration in seconds (add)")
	perDay := fs.Int("per-day", 1, "frequency per day (assign)")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}

	verb := fs.Arg(0)
	if verb == "mine" {
		_, api, err := a.session(auth.RolePatient)
		if err != nil {
			return a.fail(err)
		}
		return a.printPatientExercises(ctx, api)
	}

	_, api, err := a.session(auth.RolePhysician)
	if err != nil {
		return a.fail(err)
	}
	ids := make([]int64, 0, 2)
	for _, s := range fs.Args()[min(1, fs.NArg()):] {
		id, err := parseID(s)
		if err != nil {
			return usageError(c, fs, "%v", err)
		}
		ids = append(ids, id)
	}
	need := func(n int, usage string) bool {
		if len(ids) != n {
			usageError(c, fs, "usage: physio plan %s", usage)
			return false
		}
		return true
	}

	switch verb {
	case "show":
		if !need(1, "show <patientId>") {
			return exitUsage
		}
		plan, err := api.CurrentPlan(ctx, ids[0])
		if err != nil {
			return a.fail(err)
		}
		if plan == nil {
			fmt.Fprintf(a.stdout, "Patient %d has no rehab plan\n", ids[0])
			return exitOK
		}
		items, err := api.PlanExercises(ctx, plan.ID)
		if err != nil {
			return a.fail(err)
		}
		if a.flags.json {
			return a.printJSON(map[string]any{"plan": plan, "exercises": items})
		}
		fmt.Fprintf(a.stdout, "Plan %d (patient %d) %s\n", plan.ID, plan.PatientID, plan.Notes)
		table := make([][]string, 0, len(items))
		for _, it := range items {
			table = append(table, []string{
				itoa(it.PlanExerciseID), it.ExerciseName, strconv.Itoa(it.TargetSets), strconv.Itoa(it.TargetReps), strconv.Itoa(it.MaxDuration),
			})
		}
		return a.printTable(items, []string{"ID", "EXERCISE", "SETS", "REPS", "MAX_SEC"}, table)
	case "create":
		if !need(1, "create [--notes text] <patientId>") {
			return exitUsage
		}
		planID, err := api.CreatePlan(ctx, ids[0], *notes)
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Created plan %d\n", planID)
		return exitOK
	case "add":
		if !need(2, "add [--sets n --reps n --max-duration s] <planId> <exerciseId>") {
			return exitUsage
		}
		err := api.AddPlanExercise(ctx, ids[0], backend.PlanExerciseInput{
			ExerciseID:  ids[1],
			TargetSets:  *sets,
			TargetReps:  *reps,
			MaxDuration: *maxDuration,
		})
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Added exercise %d to plan %d\n", ids[1], ids[0])
		return exitOK
	case "remove":
		if !need(2, "remove <planId> <planExerciseId>") {
			return exitUsage
		}
		if err := api.RemovePlanExercise(ctx, ids[0], ids[1]); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Removed %d from plan %d\n", ids[1], ids[0])
		return exitOK
	case "assign":
		if !need(2, "assign [--sets n --reps n --per-day n] <planId> <exerciseId>") {
			return exitUsage
		}
		err := api.AssignExercise(ctx, ids[0], backend.AssignInput{
			ExerciseID:      ids[1],
			Sets:            *sets,
			Reps:            *reps,
			FrequencyPerDay: *perDay,
		})
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Assigned exercise %d to plan %d\n", ids[1], ids[0])
		return exitOK
	default:
		return usageError(c, fs, "unknown verb %q (use show, create, add, remove, assign or mine)", verb)
	}
}

func (a *app) printPatientExercises(ctx context.Context, api *backend.Client) int {
	rows, err := api.PatientExercises(ctx)
	if err != nil {
		return a.fail(err)
	}
	table := make([][]string, 0, len(rows))
	for _, e := range rows {
		table = append(table, []string{
			itoa(e.PatientExerciseID), e.Name, strconv.Itoa(e.Sets), strconv.Itoa(e.Reps), strconv.Itoa(e.FrequencyPerDay),
		})
	}
	return a.printTable(rows, []string{"ID", "NAME", "SETS", "REPS", "PER_DAY"}, table)
}

func runExercises(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("exercises")
	name := fs.String("name", "", "exercise name (create)")
	category := fs.String("category", "", "category (create)")
	difficulty := fs.String("difficulty", "", "difficulty (create)")
	parts := fs.String("body-parts", "", "comma-separated target body parts (create)")
	image := fs.String("image", "", "target image file (create)")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}

	sess, api, err := a.session("")
	if err != nil {
		return a.fail(err)
	}

	verb := fs.Arg(0)
	if sess.Role == auth.RolePatient && (verb == "" || verb == "mine") {
		return a.printPatientExercises(ctx, api)
	}
	if sess.Role != auth.RolePhysician {
		return a.fail(&auth.RoleError{Required: auth.RolePhysician, Actual: sess.Role})
	}

	switch verb {
	case "", "list", "mine":
		var rows []backend.Exercise
		if verb == "mine" {
			rows, err = api.MyExercises(ctx)
		} else {
			rows, err = api.ListExercises(ctx)
		}
		if err != nil {
			return a.fail(err)
		}
		table := make([][]string, 0, len(rows))
		for _, e := range rows {
			table = append(table, []string{itoa(e.ID), e.Name, e.Category, e.Difficulty, strings.Join(e.TargetBodyParts, ",")})
		}
		return a.printTable(rows, []string{"ID", "NAME", "CATEGORY", "DIFFICULTY", "BODY_PARTS"}, table)
	case "create":
		if *name == "" {
			return usageError(c, fs, "--name is required")
		}
		up, err := readUpload(*image)
		if err != nil {
			return a.fail(err)
		}
		in := backend.NewExercise{
			Name:        *name,
			Category:    *category,
			Difficulty:  *difficulty,
			TargetImage: up,
		}
		for _, p := range strings.Split(*parts, ",") {
			if p = strings.TrimSpace(p); p != "" {
				in.TargetBodyParts = append(in.TargetBodyParts, p)
			}
		}
		if err := api.CreateExercise(ctx, in); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Created exercise %q\n", *name)
		return exitOK
	case "delete":
		if fs.NArg() != 2 {
			return usageError(c, fs, "usage: physio exercises delete <exerciseId>")
		}
		id, err := parseID(fs.Arg(1))
		if err != nil {
			return usageError(c, fs, "%v", err)
		}
		if err := api.DeleteExercise(ctx, id); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Deleted exercise %d\n", id)
		return exitOK
	default:
		return usageError(c, fs, "unknown verb %q (use list, mine, create or delete)", verb)
	}
}
