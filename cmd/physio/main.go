// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command physio is the clinic platform client: sign in, manage profiles,
// subscriptions and rehab plans, run exercise capture sessions and serve
// the local role-scoped console.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, c *cli, args []string) int
}

func commandTable() []command {
	return []command{
		{"login", "sign in as patient or physician", runLogin},
		{"admin-login", "sign in as administrator", runAdminLogin},
		{"logout", "remove the stored session", runLogout},
		{"whoami", "show and verify the stored session", runWhoami},
		{"signup", "register a patient or physician account", runSignup},
		{"physicians", "list physicians", runPhysicians},
		{"subscribe", "request, subscribe to or leave a physician", runSubscribe},
		{"requests", "list or answer subscription requests", runRequests},
		{"patients", "list or show subscribed patients", runPatients},
		{"plan", "show or edit a patient's rehab plan", runPlan},
		{"exercises", "list, create or delete exercises", runExercises},
		{"session", "run a live exercise capture session", runSession},
		{"rep-capture", "record a demonstration rep for an exercise", runRepCapture},
		{"admin", "platform administration", runAdmin},
		{"notify", "watch pending subscription requests", runNotify},
		{"console", "serve the local role-scoped console", runConsole},
		{"history", "show local capture history", runHistory},
		{"config", "validate or dump configuration", runConfig},
		{"version", "print version", runVersion},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	if len(args) == 0 {
		c.usage()
		return exitUsage
	}
	switch args[0] {
	case "-h", "--help", "help":
		c.usage()
		return exitOK
	case "-version", "--version":
		return runVersion(ctx, c, nil)
	}
	for _, cmd := range commandTable() {
		if cmd.name == args[0] {
			return cmd.run(ctx, c, args[1:])
		}
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
	c.usage()
	return exitUsage
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "Usage: physio <command> [flags] [args]")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Commands:")
	for _, cmd := range commandTable() {
		fmt.Fprintf(c.stderr, "  %-12s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Every command accepts --config/-c <file.yaml> and --env <file>.")
}

func runVersion(_ context.Context, c *cli, _ []string) int {
	fmt.Fprintf(c.stdout, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
	return exitOK
}
