// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/console"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/notify"
	"github.com/ManuGH/physio/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// startTelemetry installs the tracer provider. The returned func flushes it.
func (a *app) startTelemetry(ctx context.Context) func() {
	provider, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(a.cfg))
	if err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.init_failed").Msg("tracing disabled")
		return func() {}
	}
	return func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("failed to flush traces")
		}
	}
}

func runConsole(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("console")
	listen := fs.String("listen", "", "listen address (default console.listen)")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	addr := a.cfg.Console.Listen
	if *listen != "" {
		addr = *listen
	}

	defer a.startTelemetry(ctx)()

	st := a.openHistory(ctx)
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	// The pending-request poller runs for a physician signed in at startup.
	var poller *notify.Poller
	if sess, err := a.store.Load(); err == nil && sess.Role == auth.RolePhysician {
		poller = notify.New(a.api.WithToken(sess.Token), a.cfg.Notify.Interval, a.cfg.Notify.Jitter)
	}

	srv := console.New(console.Options{
		Sessions:        a.store,
		Backend:         a.api,
		Poller:          poller,
		Capture:         a.captureFunc(st),
		History:         st,
		RateLimit:       a.cfg.Console.RateLimit,
		RateLimitWindow: a.cfg.Console.RateLimitWindow,
		ServiceName:     a.cfg.LogService + "-console",
		Version:         version,
	})

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return srv.ListenAndServe(gctx, addr) })
	grp.Go(func() error { return a.watchConfig(gctx, poller) })
	if poller != nil {
		grp.Go(func() error {
			if err := poller.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return a.fail(err)
	}
	return exitOK
}
