// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuGH/physio/internal/config"
	"gopkg.in/yaml.v3"
)

func runConfig(_ context.Context, c *cli, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(c)
		return exitOK
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(c, args[1:])
	case "dump":
		return runConfigDump(c, args[1:])
	default:
		fmt.Fprintf(c.stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(c)
		return exitUsage
	}
}

func printConfigUsage(c *cli) {
	fmt.Fprintln(c.stderr, "Usage:")
	fmt.Fprintln(c.stderr, "  physio config validate [--config|-c config.yaml] [--env .env]")
	fmt.Fprintln(c.stderr, "  physio config dump [--config|-c config.yaml] [--env .env] [--format=yaml|json]")
}

func runConfigValidate(c *cli, args []string) int {
	fs, g := c.flagSet("config validate")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	configPath := resolveConfigPath(g.config)
	loader := config.NewLoader(configPath, g.envFile, version)
	if _, err := loader.Load(); err != nil {
		fmt.Fprintf(c.stderr, "Configuration error in %s:\n  %v\n", describeSource(configPath), err)
		return exitRuntime
	}

	fmt.Fprintf(c.stdout, "✓ %s is valid\n", describeSource(configPath))
	return exitOK
}

func runConfigDump(c *cli, args []string) int {
	fs, g := c.flagSet("config dump")
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	configPath := resolveConfigPath(g.config)
	loader := config.NewLoader(configPath, g.envFile, version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error in %s:\n  %v\n", describeSource(configPath), err)
		return exitRuntime
	}

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(c.stderr, "Failed to encode YAML: %v\n", err)
			return exitRuntime
		}
		_ = enc.Close()
		return exitOK
	case "json":
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(c.stderr, "Failed to encode JSON: %v\n", err)
			return exitRuntime
		}
		return exitOK
	default:
		fmt.Fprintf(c.stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return exitUsage
	}
}

func describeSource(path string) string {
	if path == "" {
		return "environment and defaults"
	}
	return path
}
