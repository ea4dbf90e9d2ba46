package rulesource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"rxsentinel/arbiter/pkg/config"
)

// defaultOpTimeout bounds clone and pull when the config does not.
const defaultOpTimeout = 30 * time.Second

var errNotCloned = errors.New("repository not cloned yet")

// PullResult describes what a pull brought in.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string
	HadChanges   bool
}

// RepositoryMetrics is a snapshot of git operation outcomes.
type RepositoryMetrics struct {
	CloneDuration   time.Duration
	PullDuration    time.Duration
	LastCommitSHA   string
	LastPullTime    time.Time
	FailedPulls     int64
	SuccessfulPulls int64
}

// Repository is the local clone of the rule-parameter repository,
// pinned to one branch. Remote operations are serialized behind a
// single lock, so polling and CLI-triggered syncs never race each
// other.
type Repository struct {
	cfg   *config.GitConfig
	dir   string
	creds credentialFunc

	mu    sync.RWMutex
	clone *gogit.Repository
	stats RepositoryMetrics
}

// NewRepository validates the git configuration and prepares a manager
// for the clone at cfg.Clone.LocalPath. Nothing touches the network
// until Clone.
func NewRepository(cfg *config.GitConfig) (*Repository, error) {
	if cfg == nil {
		return nil, errors.New("git config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, errors.New("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("branch cannot be empty")
	}

	creds, err := buildCredentials(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("git auth: %w", err)
	}

	dir := cfg.Clone.LocalPath
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "arbiter-rules")
	}

	return &Repository{cfg: cfg, dir: dir, creds: creds}, nil
}

// Clone materializes the repository under the local path. An existing
// clone is reopened and kept; CleanOnStart forces a fresh one.
func (r *Repository) Clone(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	if r.cfg.Clone.CleanOnStart {
		if err := os.RemoveAll(r.dir); err != nil {
			return fmt.Errorf("clean clone dir: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(r.dir, ".git")); err == nil {
		existing, err := gogit.PlainOpen(r.dir)
		if err != nil {
			return fmt.Errorf("open existing clone: %w", err)
		}
		r.clone = existing
		r.stats.CloneDuration = time.Since(start)
		return nil
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create clone dir: %w", err)
	}

	auth, err := r.creds()
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout())
	defer cancel()

	clone, err := gogit.PlainCloneContext(opCtx, r.dir, false, &gogit.CloneOptions{
		URL:           r.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  r.cfg.Clone.Depth > 0,
		Depth:         r.cfg.Clone.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", r.cfg.Repository, err)
	}

	r.clone = clone
	r.stats.CloneDuration = time.Since(start)
	return nil
}

// Pull fast-forwards the tracked branch and reports whether HEAD moved.
// Force-pulls are never issued: a rewritten remote branch surfaces as
// an error instead of silently replacing history.
func (r *Repository) Pull(ctx context.Context) (PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clone == nil {
		return PullResult{}, errNotCloned
	}

	before, err := r.headSHA()
	if err != nil {
		return PullResult{}, err
	}

	wt, err := r.clone.Worktree()
	if err != nil {
		return PullResult{}, fmt.Errorf("worktree: %w", err)
	}

	auth, err := r.creds()
	if err != nil {
		return PullResult{}, err
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout())
	defer cancel()

	start := time.Now()
	err = wt.PullContext(opCtx, &gogit.PullOptions{RemoteName: "origin", Auth: auth})
	r.stats.PullDuration = time.Since(start)
	r.stats.LastPullTime = time.Now()
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		r.stats.FailedPulls++
		return PullResult{}, fmt.Errorf("pull: %w", err)
	}
	r.stats.SuccessfulPulls++

	after, err := r.headSHA()
	if err != nil {
		return PullResult{}, err
	}

	res := PullResult{FromSHA: before, ToSHA: after, HadChanges: before != after}
	if !res.HadChanges {
		return res, nil
	}

	res.ChangedFiles, err = r.diffPaths(before, after)
	if err != nil {
		return PullResult{}, err
	}
	r.stats.LastCommitSHA = after

	return res, nil
}

// CurrentCommit describes the commit the clone currently sits on.
func (r *Repository) CurrentCommit() (CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.clone == nil {
		return CommitInfo{}, errNotCloned
	}

	sha, err := r.headSHA()
	if err != nil {
		return CommitInfo{}, err
	}

	commit, err := r.clone.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return CommitInfo{}, fmt.Errorf("load commit %s: %w", shortSHA(sha), err)
	}

	return CommitInfo{
		SHA:        commit.Hash.String(),
		Author:     commit.Author.Name,
		Email:      commit.Author.Email,
		Timestamp:  commit.Author.When,
		Message:    commit.Message,
		Branch:     r.cfg.Branch,
		Repository: r.cfg.Repository,
	}, nil
}

// Rollback hard-resets the working tree to a known-good commit after a
// bad parameter set. Reset keeps HEAD attached to the branch, so the
// next pull still fast-forwards once a fix lands on top of the bad
// commit.
func (r *Repository) Rollback(ctx context.Context, sha string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clone == nil {
		return errNotCloned
	}

	target := plumbing.NewHash(sha)
	if _, err := r.clone.CommitObject(target); err != nil {
		return fmt.Errorf("rollback target %s: %w", shortSHA(sha), err)
	}

	wt, err := r.clone.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	if err := wt.Reset(&gogit.ResetOptions{Commit: target, Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", shortSHA(sha), err)
	}

	return nil
}

// headSHA needs the lock held.
func (r *Repository) headSHA() (string, error) {
	ref, err := r.clone.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// diffPaths lists the repo-relative paths that differ between two
// commits. Deletions report the removed path. Needs the lock held.
func (r *Repository) diffPaths(fromSHA, toSHA string) ([]string, error) {
	fromTree, err := r.treeAt(fromSHA)
	if err != nil {
		return nil, err
	}
	toTree, err := r.treeAt(toSHA)
	if err != nil {
		return nil, err
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", shortSHA(fromSHA), shortSHA(toSHA), err)
	}

	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		switch {
		case ch.To.Name != "":
			paths = append(paths, ch.To.Name)
		case ch.From.Name != "":
			paths = append(paths, ch.From.Name)
		}
	}
	return paths, nil
}

func (r *Repository) treeAt(sha string) (*object.Tree, error) {
	commit, err := r.clone.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", shortSHA(sha), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree of %s: %w", shortSHA(sha), err)
	}
	return tree, nil
}

// ParamsPath is where the params file lives inside the clone.
func (r *Repository) ParamsPath() string {
	return filepath.Join(r.dir, r.cfg.Path)
}

// LocalPath is the clone directory.
func (r *Repository) LocalPath() string {
	return r.dir
}

// Metrics returns a snapshot of the operation metrics.
func (r *Repository) Metrics() RepositoryMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func (r *Repository) opTimeout() time.Duration {
	if t := r.cfg.Poll.Timeout; t > 0 {
		return t
	}
	return defaultOpTimeout
}
