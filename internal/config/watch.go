package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the snapshot whenever the config file changes on disk.
// In-flight requests keep the snapshot they started with; only new
// requests observe the reloaded catalog. Blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which
	// drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(m.configPath)); err != nil {
		return err
	}

	var debounce *time.Timer

	reload := func() {
		if _, err := m.Load(); err != nil {
			logger.Error("Config reload failed, keeping previous snapshot", "error", err)
			return
		}

		logger.Info("Config reloaded", "path", m.configPath)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != filepath.Clean(m.configPath) {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Coalesce the burst of events a single save produces.
			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Error("Config watcher error", "error", err)
		}
	}
}
