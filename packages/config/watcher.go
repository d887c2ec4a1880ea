package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounceDelay is how long Watch waits after the last write event
// before reloading, so editors that write in several steps trigger one
// reload instead of many.
const WatchDebounceDelay = 250 * time.Millisecond

// Watch reloads the config file into the current configuration whenever it
// changes on disk, until ctx is cancelled. Reload failures are reported
// through the warning handler; the previous configuration stays in effect.
//
// Note that a reload that changes Proxy does not reconfigure backends that
// already exist: they keep their captured proxy and warn on subsequent
// requests.
func Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file, which would
	// drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				cfg, err := Load(path)
				if err != nil {
					Warn(fmt.Sprintf("config reload failed: %v", err))
					return
				}
				Set(cfg)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			Warn(fmt.Sprintf("config watcher: %v", err))
		}
	}
}
