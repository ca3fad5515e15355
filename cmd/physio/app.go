// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
	"github.com/ManuGH/physio/internal/config"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/rs/zerolog"
)

type cli struct {
	stdout io.Writer
	stderr io.Writer
}

// globalFlags are accepted by every command.
type globalFlags struct {
	config  string
	envFile string
	json    bool
}

func (c *cli) flagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet("physio "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	g := &globalFlags{}
	fs.StringVar(&g.config, "config", "", "path to config file (YAML)")
	fs.StringVar(&g.config, "c", "", "path to config file (shorthand)")
	fs.StringVar(&g.envFile, "env", ".env", "path to .env file")
	fs.BoolVar(&g.json, "json", false, "print JSON instead of a table")
	return fs, g
}

// resolveConfigPath prefers an explicit path, then ${PHYSIO_DATA}/config.yaml.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv("PHYSIO_DATA"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// app is the loaded runtime shared by every command.
type app struct {
	*cli
	flags  *globalFlags
	loader *config.Loader
	cfg    config.AppConfig
	store  *auth.Store
	api    *backend.Client
	logger zerolog.Logger
}

func (c *cli) load(g *globalFlags) (*app, error) {
	loader := config.NewLoader(resolveConfigPath(g.config), g.envFile, version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  c.stderr,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	return &app{
		cli:    c,
		flags:  g,
		loader: loader,
		cfg:    cfg,
		store:  auth.NewStore(cfg.SessionPath()),
		api:    backend.New(backend.Options{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout}),
		logger: xglog.WithComponent("cli"),
	}, nil
}

// setup parses args and loads the app. A nil app means exit with the code.
func (c *cli) setup(fs *flag.FlagSet, g *globalFlags, args []string) (*app, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exitOK
		}
		return nil, exitUsage
	}
	a, err := c.load(g)
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error:\n  %v\n", err)
		return nil, exitRuntime
	}
	return a, exitOK
}

// session returns the stored session and a client bound to it. When role is
// non-empty the session must carry it.
func (a *app) session(role auth.Role) (auth.Session, *backend.Client, error) {
	sess, err := a.store.Load()
	if err != nil {
		return auth.Session{}, nil, err
	}
	if role != "" && sess.Role != role {
		return sess, nil, &auth.RoleError{Required: role, Actual: sess.Role}
	}
	return sess, a.api.WithToken(sess.Token), nil
}

// fail prints err for a human and returns the runtime exit code. A token the
// backend rejects also clears the stored session.
func (a *app) fail(err error) int {
	switch {
	case errors.Is(err, auth.ErrNoSession):
		fmt.Fprintln(a.stderr, "Not signed in. Run `physio login` first.")
	case errors.Is(err, auth.ErrRoleMismatch):
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	case errors.Is(err, backend.ErrUnauthorized):
		_ = a.store.Logout()
		fmt.Fprintln(a.stderr, "Session expired or rejected by the backend. Please sign in again.")
	default:
		if msg := backend.Message(err); msg != "" {
			fmt.Fprintf(a.stderr, "Error: %s\n", msg)
		} else {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
		}
	}
	return exitRuntime
}

func usageError(c *cli, fs *flag.FlagSet, format string, args ...any) int {
	fmt.Fprintf(c.stderr, "Error: "+format+"\n", args...)
	fs.Usage()
	return exitUsage
}

// parseID parses a positional id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) printJSON(v any) int {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(a.stderr, "Failed to encode JSON: %v\n", err)
		return exitRuntime
	}
	return exitOK
}

// printTable writes rows under header, or JSON of v with --json.
func (a *app) printTable(v any, header []string, rows [][]string) int {
	if a.flags.json {
		return a.printJSON(v)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	return exitOK
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func readPassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("PHYSIO_PASSWORD")
}

