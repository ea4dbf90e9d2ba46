package rulesource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/evaluator/rules"
)

// defaultPollInterval is used when the config leaves the interval unset.
const defaultPollInterval = 60 * time.Second

// CommitInfo is the provenance of a parameter set: the commit it was
// loaded from. It flows into the registry version so decisions can be
// traced back to the exact thresholds that produced them.
type CommitInfo struct {
	SHA        string    `json:"sha"`
	Author     string    `json:"author"`
	Email      string    `json:"email"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	Branch     string    `json:"branch"`
	Repository string    `json:"repository"`
}

// ApplyFunc installs a validated parameter set. Implementations build a
// fresh registry and swap it in; they must not mutate the running one.
// The commit is the provenance of the parameters being applied.
type ApplyFunc func(params rules.Params, commit CommitInfo) error

// Source serves evaluator parameters from a git repository. It clones
// the configured branch, applies the params file on startup, and keeps
// the running set current by polling for new commits.
type Source struct {
	cfg    *config.GitConfig
	repo   *Repository
	apply  ApplyFunc
	logger *slog.Logger

	mu      sync.RWMutex
	watcher *Watcher
	current rules.Params
	commit  CommitInfo
	loaded  bool
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the source's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a git-backed parameter source. apply is called once at
// Start and again whenever a commit changes the params file.
func New(cfg *config.GitConfig, apply ApplyFunc, opts ...Option) (*Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if apply == nil {
		return nil, fmt.Errorf("apply function cannot be nil")
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	s := &Source{
		cfg:    cfg,
		repo:   repo,
		apply:  apply,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "rulesource")

	return s, nil
}

// Start clones the repository, loads and applies the params file, and
// begins polling when the config asks for it. A params file that fails
// validation at startup is a hard error: there is no last good set to
// fall back to yet.
func (s *Source) Start(ctx context.Context) error {
	if err := s.repo.Clone(ctx); err != nil {
		return err
	}

	if err := s.reload(s.repo.ParamsPath()); err != nil {
		return fmt.Errorf("initial parameter load: %w", err)
	}

	commit := s.Commit()
	s.logger.Info("rule parameters loaded from repository",
		"repository", s.cfg.Repository,
		"branch", s.cfg.Branch,
		"commit", shortSHA(commit.SHA))

	if !s.cfg.Poll.Enabled {
		return nil
	}

	interval := s.cfg.Poll.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	watcher := NewWatcher(s.repo, s.cfg.Path, interval, s.reload)
	watcher.SetLogger(s.logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	return nil
}

// reload parses, validates, and applies the params file, then records it
// as the current set. Any error leaves the current set in place.
func (s *Source) reload(paramsPath string) error {
	params, err := config.LoadParamsFile(paramsPath)
	if err != nil {
		return err
	}

	commit, err := s.repo.CurrentCommit()
	if err != nil {
		return err
	}

	if err := s.apply(params, commit); err != nil {
		return fmt.Errorf("failed to apply parameters: %w", err)
	}

	s.mu.Lock()
	s.current = params
	s.commit = commit
	s.loaded = true
	s.mu.Unlock()

	return nil
}

// Stop halts polling. The last applied parameter set stays active.
func (s *Source) Stop() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	return watcher.Stop()
}

// Sync polls immediately instead of waiting for the next tick.
func (s *Source) Sync(ctx context.Context) error {
	s.mu.RLock()
	watcher := s.watcher
	s.mu.RUnlock()

	if watcher == nil {
		return fmt.Errorf("polling not enabled")
	}
	return watcher.ForceCheck(ctx)
}

// Params returns the active parameter set. ok is false before the first
// successful load.
func (s *Source) Params() (params rules.Params, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

// Commit returns the provenance of the active parameter set.
func (s *Source) Commit() CommitInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commit
}

// Repository exposes the underlying clone, mainly for status commands.
func (s *Source) Repository() *Repository {
	return s.repo
}
