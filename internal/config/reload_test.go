// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHolder_ReloadNotifiesListeners(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "physio.yaml", "dataDir: "+dir+"\nnotify:\n  interval: 15s\n")

	loader := NewLoader(path, "", "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nnotify:\n  interval: 40s\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	assert.Equal(t, 40*time.Second, holder.Get().Notify.Interval)
	select {
	case got := <-ch:
		assert.Equal(t, 40*time.Second, got.Notify.Interval)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestConfigHolder_ReloadFailureKeepsOld(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "physio.yaml", "dataDir: "+dir+"\n")

	loader := NewLoader(path, "", "dev")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nbogus: true\n"), 0o600))
	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, initial, holder.Get())
}

func TestConfigHolder_FullListenerIsSkipped(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PHYSIO_DATA", dir)
	loader := NewLoader("", "", "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	ch := make(chan AppConfig) // unbuffered, nobody reading
	holder.RegisterListener(ch)

	done := make(chan struct{})
	go func() {
		_ = holder.Reload(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestConfigHolder_WatcherPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "physio.yaml", "dataDir: "+dir+"\nlogLevel: info\n")

	loader := NewLoader(path, "", "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	holder.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))
	defer holder.Stop()

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nlogLevel: debug\n"), 0o600))

	assert.Eventually(t, func() bool {
		return holder.Get().LogLevel == "debug"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestConfigHolder_WatcherSeesRenameReplace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "physio.yaml", "dataDir: "+dir+"\nnotify:\n  interval: 15s\n")

	loader := NewLoader(path, "", "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	holder.debounce = 20 * time.Millisecond
	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))
	defer holder.Stop()

	// unrelated files in the same directory are ignored
	writeFile(t, dir, "notes.txt", "x")

	tmp := writeFile(t, dir, ".physio.yaml.tmp", "dataDir: "+dir+"\nnotify:\n  interval: 30s\n")
	require.NoError(t, os.Rename(tmp, path))

	select {
	case got := <-ch:
		assert.Equal(t, 30*time.Second, got.Notify.Interval)
	case <-time.After(3 * time.Second):
		t.Fatal("rename-replace was not picked up")
	}
	holder.Stop()
	holder.Stop()
}

func TestChanges(t *testing.T) {
	a := Defaults()
	b := a
	assert.Empty(t, Changes(a, b))

	b.LogLevel = "debug"
	b.Notify.Interval = time.Minute
	b.Camera.Device = "/dev/video1"
	assert.Equal(t, []string{"logLevel", "notify.interval"}, Changes(a, b))
}

func TestConfigHolder_WatcherNoFile(t *testing.T) {
	holder := NewConfigHolder(Defaults(), NewLoader("", "", "dev"))
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}
