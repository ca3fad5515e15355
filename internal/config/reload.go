// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ConfigHolder owns the live configuration and reloads it from the config
// file. Listeners receive every successfully loaded config.
type ConfigHolder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	debounce time.Duration

	listenersMu sync.Mutex
	listeners   []chan<- AppConfig

	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

func NewConfigHolder(initial AppConfig, loader *Loader) *ConfigHolder {
	return &ConfigHolder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: 500 * time.Millisecond,
	}
}

// Get returns the current configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the file again. On failure the current
// config stays in place.
func (h *ConfigHolder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("keeping previous configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	changed := Changes(prev, next)
	h.logger.Info().
		Str(xglog.FieldEvent, "config.reloaded").
		Strs("changed", changed).
		Msg("configuration reloaded")

	h.notify(next)
	return nil
}

// StartWatcher reloads whenever the config file is written or replaced.
// It watches the parent directory so rename-on-save editors are seen. A
// loader without a file makes this a no-op.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	path := h.loader.ConfigPath()
	if path == "" {
		h.logger.Debug().Str(xglog.FieldEvent, "config.watch_disabled").Msg("no config file to watch")
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = w
	h.done = make(chan struct{})

	h.logger.Info().Str(xglog.FieldEvent, "config.watch_started").Str(xglog.FieldPath, abs).Msg("watching config file")
	go h.watch(ctx, w, abs)
	return nil
}

func (h *ConfigHolder) watch(ctx context.Context, w *fsnotify.Watcher, path string) {
	defer close(h.done)
	defer func() { _ = w.Close() }()

	// pending is armed by file events and fires one reload per burst.
	pending := time.NewTimer(time.Hour)
	pending.Stop()
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			h.logger.Debug().Str(xglog.FieldEvent, "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
			pending.Reset(h.debounce)
		case <-pending.C:
			_ = h.Reload(ctx)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch_error").Msg("config watcher error")
		}
	}
}

// Stop ends the watcher and waits for it. Safe to call more than once.
func (h *ConfigHolder) Stop() {
	if h.watcher == nil {
		return
	}
	h.stopOnce.Do(func() {
		_ = h.watcher.Close()
		<-h.done
	})
}

// RegisterListener adds ch to the reload fan-out. Sends never block; a
// listener that is not ready misses that reload.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notify(cfg AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(xglog.FieldEvent, "config.listener_skip").Msg("listener busy, reload not delivered")
		}
	}
}

// Changes names the settings that differ between two configs. Only the
// settings a running process can pick up are compared.
func Changes(prev, next AppConfig) []string {
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("logLevel", prev.LogLevel != next.LogLevel)
	add("backend.baseUrl", prev.Backend.BaseURL != next.Backend.BaseURL)
	add("backend.timeout", prev.Backend.Timeout != next.Backend.Timeout)
	add("capture.interval", prev.Capture.Interval != next.Capture.Interval)
	add("capture.mode", prev.Capture.Mode != next.Capture.Mode)
	add("capture.repInterval", prev.Capture.RepInterval != next.Capture.RepInterval)
	add("notify.interval", prev.Notify.Interval != next.Notify.Interval)
	add("notify.jitter", prev.Notify.Jitter != next.Notify.Jitter)
	add("console.rateLimit", prev.Console.RateLimit != next.Console.RateLimit)
	return out
}
