package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the configuration file into a Store when it changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *Store
	path    string
}

// NewWatcher creates a file watcher for the configuration path. Paths that
// do not exist yet are skipped silently; the store keeps its current value.
func NewWatcher(store *Store, path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create file watcher: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := w.Add(path); err != nil {
				w.Close()
				return nil, fmt.Errorf("config: watch %q: %w", path, err)
			}
		}
	}
	return &Watcher{watcher: w, store: store, path: path}, nil
}

// Run watches for changes and reloads. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "config: file watcher error: %v\n", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: hot-reload failed: %v\n", err)
		return
	}
	if err := w.store.Update(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: hot-reload rejected: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "config: reloaded (version %d)\n", w.store.Version())
}
