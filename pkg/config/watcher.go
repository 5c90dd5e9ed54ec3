package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file by rename are picked up. Bursts of events
// are debounced into a single reload. A file that fails to load or validate
// is logged and ignored; the previous configuration stays in effect.
type Watcher struct {
	path     string
	load     func(path string) (*Config, error)
	onReload func(*Config)
	interval time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWatcher creates a watcher for path. onReload receives every
// successfully loaded configuration. Environment overrides are applied to
// each reload.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config path is required for watching")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		load:     LoadConfigWithEnvOverrides,
		onReload: onReload,
		interval: DefaultDebounceInterval,
		logger:   slog.Default().With("component", "config.watcher"),
		watcher:  fw,
	}, nil
}

// Watch processes file events until ctx is cancelled. It closes the
// underlying fsnotify watcher before returning.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.stop()

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("config file event", "op", event.Op.String())
			w.trigger()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// trigger schedules a reload after the debounce interval, resetting any
// pending one.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	cfg, err := w.load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}

	w.logger.Info("configuration reloaded", "path", w.path)
	w.onReload(cfg)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close fsnotify watcher", "error", err)
	}
}
