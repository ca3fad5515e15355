// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/config"
	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/ManuGH/physio/internal/notify"
	"golang.org/x/sync/errgroup"
)

func runNotify(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("notify")
	once := fs.Bool("once", false, "poll once and exit")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	_, api, err := a.session(auth.RolePhysician)
	if err != nil {
		return a.fail(err)
	}

	if *once {
		reqs, err := api.PhysicianRequests(ctx)
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "%d pending\n", len(reqs))
		return exitOK
	}

	poller := notify.New(api, a.cfg.Notify.Interval, a.cfg.Notify.Jitter)
	counts, cancel := poller.Subscribe()
	defer cancel()

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return poller.Run(gctx) })
	grp.Go(func() error { return a.watchConfig(gctx, poller) })
	grp.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case n := <-counts:
				fmt.Fprintf(a.stdout, "%d pending\n", n)
			}
		}
	})
	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return a.fail(err)
	}
	return exitOK
}

// watchConfig hot-reloads the config file and applies the reloadable
// settings: log level and poll interval. Without a config file it only
// waits for ctx.
func (a *app) watchConfig(ctx context.Context, poller *notify.Poller) error {
	if a.loader.ConfigPath() == "" {
		<-ctx.Done()
		return nil
	}
	holder := config.NewConfigHolder(a.cfg, a.loader)
	updates := make(chan config.AppConfig, 1)
	holder.RegisterListener(updates)
	if err := holder.StartWatcher(ctx); err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch_failed").Msg("config hot reload disabled")
		<-ctx.Done()
		return nil
	}
	defer holder.Stop()

	cur := a.cfg
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-updates:
			if cfg.LogLevel != cur.LogLevel && xglog.SetLevel(cfg.LogLevel) {
				a.logger.Info().Str(xglog.FieldEvent, "config.log_level").Str("level", cfg.LogLevel).Msg("log level changed")
			}
			if poller != nil && cfg.Notify != cur.Notify {
				poller.SetInterval(cfg.Notify.Interval, cfg.Notify.Jitter)
			}
			cur = cfg
		}
	}
}
