package rulesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// ReloadFunc loads and applies a parameter set from the given file
// path. Returning an error leaves the running evaluator set untouched
// and rolls the clone back to the last good commit.
type ReloadFunc func(paramsPath string) error

// WatcherMetrics is a snapshot of poll and reload outcomes.
type WatcherMetrics struct {
	PollCount         int64
	SuccessfulReloads int64
	FailedReloads     int64
	SkippedPolls      int64
}

// Watcher polls the parameter repository and reloads when a commit
// touches the params file. A reload that fails validation rolls the
// clone back to the last commit that loaded cleanly; the bad commit is
// still on the remote, so every poll retries it until a fix lands on
// top.
type Watcher struct {
	repo         *Repository
	paramsFile   string
	pollInterval time.Duration
	reloadFn     ReloadFunc
	logger       *slog.Logger

	polls   atomic.Int64
	reloads atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64

	mu          sync.Mutex
	lastGoodSHA string
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewWatcher creates a watcher for repo. paramsFile is the
// repo-relative path of the params file; only commits touching it
// trigger a reload.
func NewWatcher(repo *Repository, paramsFile string, interval time.Duration, reloadFn ReloadFunc) *Watcher {
	return &Watcher{
		repo:         repo,
		paramsFile:   path.Clean(filepath.ToSlash(paramsFile)),
		pollInterval: interval,
		reloadFn:     reloadFn,
		logger:       slog.Default(),
	}
}

// SetLogger replaces the default logger. Call before Start.
func (w *Watcher) SetLogger(logger *slog.Logger) {
	w.logger = logger
}

// Start records the current commit as the baseline and begins polling.
// The clone must exist; call Repository.Clone first.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("watcher already started")
	}

	commit, err := w.repo.CurrentCommit()
	if err != nil {
		return fmt.Errorf("baseline commit: %w", err)
	}
	w.lastGoodSHA = commit.SHA

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.loop(loopCtx, done)

	w.logger.Info("rule source watcher started",
		"poll_interval", w.pollInterval,
		"baseline", shortSHA(commit.SHA))

	return nil
}

// Stop halts the polling loop and waits for it to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return errors.New("watcher not started")
	}

	cancel()
	<-done
	return nil
}

// IsRunning reports whether the polling loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				w.logger.Error("rule source poll failed", "error", err)
			}
		}
	}
}

// poll pulls the tracked branch and reloads when the params file
// moved. Commits that leave the params file alone only advance the
// baseline so the same commit is not re-examined every tick.
func (w *Watcher) poll(ctx context.Context) error {
	w.polls.Add(1)

	pulled, err := w.repo.Pull(ctx)
	if err != nil {
		return err
	}
	if !pulled.HadChanges {
		return nil
	}

	w.logger.Info("rule repository changed",
		"from", shortSHA(pulled.FromSHA),
		"to", shortSHA(pulled.ToSHA),
		"files", len(pulled.ChangedFiles))

	if !w.touchesParams(pulled.ChangedFiles) {
		w.skipped.Add(1)
		w.setBaseline(pulled.ToSHA)
		return nil
	}

	return w.applyNew(ctx, pulled.ToSHA)
}

// touchesParams reports whether the tracked params file is among the
// changed paths.
func (w *Watcher) touchesParams(files []string) bool {
	for _, f := range files {
		if path.Clean(filepath.ToSlash(f)) == w.paramsFile {
			return true
		}
	}
	return false
}

// applyNew hands the freshly pulled params file to the reload
// callback. On failure the clone is reset to the last good commit; the
// in-memory evaluator set was never swapped, so nothing else needs
// restoring.
func (w *Watcher) applyNew(ctx context.Context, newSHA string) error {
	lastGood := w.baseline()

	w.logger.Info("reloading rule parameters", "commit", shortSHA(newSHA))

	err := w.reloadFn(w.repo.ParamsPath())
	if err == nil {
		w.setBaseline(newSHA)
		w.reloads.Add(1)
		w.logger.Info("rule parameters reloaded",
			"from", shortSHA(lastGood),
			"to", shortSHA(newSHA))
		return nil
	}

	w.failed.Add(1)
	w.logger.Error("parameter reload failed, rolling back",
		"error", err,
		"bad_commit", shortSHA(newSHA),
		"rollback_to", shortSHA(lastGood))

	if rbErr := w.repo.Rollback(ctx, lastGood); rbErr != nil {
		w.logger.Error("rollback failed", "error", rbErr, "target", shortSHA(lastGood))
		return fmt.Errorf("reload failed: %w (rollback also failed: %v)", err, rbErr)
	}

	return fmt.Errorf("parameter reload failed: %w", err)
}

// ForceCheck polls immediately instead of waiting for the next tick.
func (w *Watcher) ForceCheck(ctx context.Context) error {
	if !w.IsRunning() {
		return errors.New("watcher not started")
	}
	return w.poll(ctx)
}

// LastGoodSHA returns the commit the active parameters were loaded
// from.
func (w *Watcher) LastGoodSHA() string {
	return w.baseline()
}

// Metrics returns a snapshot of the poll counters.
func (w *Watcher) Metrics() WatcherMetrics {
	return WatcherMetrics{
		PollCount:         w.polls.Load(),
		SuccessfulReloads: w.reloads.Load(),
		FailedReloads:     w.failed.Load(),
		SkippedPolls:      w.skipped.Load(),
	}
}

func (w *Watcher) setBaseline(sha string) {
	w.mu.Lock()
	w.lastGoodSHA = sha
	w.mu.Unlock()
}

func (w *Watcher) baseline() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastGoodSHA
}

// shortSHA truncates a commit hash for log output.
func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
