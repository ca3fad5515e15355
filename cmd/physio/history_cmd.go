// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuGH/physio/internal/history"
)

func runHistory(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("history")
	limit := fs.Int("limit", 20, "number of runs to show")
	verify := fs.Bool("verify", false, "run an integrity check instead of listing")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	if !a.cfg.History.Enabled {
		fmt.Fprintln(a.stderr, "Capture history is disabled (history.enabled: false)")
		return exitRuntime
	}
	path := a.cfg.HistoryPath()

	if *verify {
		problems, err := history.VerifyIntegrity(path, true)
		if err != nil {
			return a.fail(err)
		}
		if len(problems) > 0 {
			for _, p := range problems {
				fmt.Fprintln(a.stderr, p)
			}
			return exitRuntime
		}
		fmt.Fprintf(a.stdout, "%s: ok\n", path)
		return exitOK
	}

	st, err := history.Open(ctx, path)
	if err != nil {
		return a.fail(err)
	}
	defer func() { _ = st.Close() }()

	runs, err := st.List(ctx, *limit)
	if err != nil {
		return a.fail(err)
	}
	totals, err := st.Totals(ctx)
	if err != nil {
		return a.fail(err)
	}
	if a.flags.json {
		return a.printJSON(map[string]any{"runs": runs, "totals": totals})
	}
	table := make([][]string, 0, len(runs))
	for _, r := range runs {
		table = append(table, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			itoa(r.SessionID), itoa(r.ExerciseID), string(r.Status), strconv.Itoa(r.RepCount),
			strconv.FormatInt(r.FramesSent, 10), r.Duration().Round(time.Second).String(),
		})
	}
	a.printTable(runs, []string{"STARTED", "SESSION", "EXERCISE", "STATUS", "REPS", "FRAMES", "DURATION"}, table)
	fmt.Fprintf(a.stdout, "\n%d runs, %d completed, %d failed, %d reps total\n", totals.Runs, totals.Completed, totals.Failed, totals.TotalReps)
	return exitOK
}
