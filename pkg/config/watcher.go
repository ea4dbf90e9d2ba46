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

	"rxsentinel/arbiter/pkg/evaluator/rules"
)

// ParamsWatcher watches a standalone params file and hands each
// validated revision to a callback. Events are debounced so an editor
// save that produces several writes loads once, and the watch is on the
// file's directory rather than the file itself so rename-and-replace
// saves are still seen.
type ParamsWatcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewParamsWatcher creates a watcher for the params file at path.
// A zero debounce uses the default.
func NewParamsWatcher(path string, debounce time.Duration, logger *slog.Logger) (*ParamsWatcher, error) {
	if path == "" {
		return nil, errors.New("params watcher requires a file path")
	}
	if debounce <= 0 {
		debounce = DefaultRulesWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	return &ParamsWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		fsw:      fsw,
		logger:   logger.With("component", "config.watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until the context is cancelled or Stop is called,
// invoking onReload with each revision of the file that parses and
// validates. A revision that fails either is logged and dropped, so a
// bad save never reaches the caller.
func (w *ParamsWatcher) Watch(ctx context.Context, onReload func(rules.Params) error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch params directory: %w", err)
	}

	w.logger.Info("params watcher started", "path", w.path, "debounce", w.debounce)

	// The quiet timer starts disarmed; the first relevant event arms
	// it and later ones push it out. The reload runs in this loop, so
	// it never races event handling.
	quiet := time.NewTimer(w.debounce)
	if !quiet.Stop() {
		<-quiet.C
	}
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("params watcher stopped", "reason", "context cancelled")
			return nil

		case <-w.stopCh:
			w.logger.Info("params watcher stopped", "reason", "stop requested")
			return nil

		case <-quiet.C:
			w.reload(onReload)

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("fsnotify event stream closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("params file event", "path", event.Name, "op", event.Op.String())
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("fsnotify error stream closed")
			}
			w.logger.Error("params watcher error", "error", err)
		}
	}
}

// Stop halts the watcher and waits for Watch to return. Calling Stop
// on a watcher that never started is a no-op.
func (w *ParamsWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("close fsnotify watcher: %w", err)
	}
	return nil
}

func (w *ParamsWatcher) reload(onReload func(rules.Params) error) {
	params, err := LoadParamsFile(w.path)
	if err != nil {
		w.logger.Error("params reload rejected", "error", err)
		return
	}

	w.logger.Info("applying params reload", "path", w.path)
	if err := onReload(params); err != nil {
		w.logger.Error("params reload failed", "error", err)
	}
}

// relevant filters to content-changing events on the watched file.
func (w *ParamsWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}
