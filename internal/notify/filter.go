package notify

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/blackwell-systems/gitwatch/internal/config"
	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// gitDirIgnoredFiles are rewritten by git while composing a commit and never
// signal a repository change on their own.
var gitDirIgnoredFiles = []string{"COMMIT_EDITMSG", "MERGE_MSG", "SQUASH_MSG"}

// FilterOptions configures a RepoFilter.
type FilterOptions struct {
	// Patterns are always applied, in .gitignore syntax.
	Patterns []string
	// Gitignore loads <workspace>/.gitignore and reloads it when it changes.
	Gitignore bool
	Logger    *slog.Logger
}

// rule is one compiled ignore pattern.
type rule struct {
	pattern  string
	g        glob.Glob
	dirOnly  bool // trailing "/"
	anchored bool // leading or inner "/"
}

// RepoFilter drops paths a repository does not care about and forwards the
// rest to next. Batches left empty are not forwarded.
type RepoFilter struct {
	next      watcher.Notifier
	workspace string
	gitDir    string
	gitignore string
	opts      FilterOptions
	logger    *slog.Logger

	mu    sync.Mutex
	rules []rule
}

// NewRepoFilter creates a filter for the work tree at workspace.
func NewRepoFilter(next watcher.Notifier, workspace string, opts FilterOptions) (*RepoFilter, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &RepoFilter{
		next:      next,
		workspace: abs,
		gitDir:    GitDir(abs),
		gitignore: filepath.Join(abs, ".gitignore"),
		opts:      opts,
		logger:    logger,
	}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// GitDir returns the repository directory of a work tree, with a trailing
// separator.
func GitDir(workspace string) string {
	return filepath.Join(workspace, ".git") + string(filepath.Separator)
}

// GitDirChanged reports whether any path lies inside the repository directory.
func (f *RepoFilter) GitDirChanged(paths []string) bool {
	return TouchesDir(paths, f.gitDir)
}

func (f *RepoFilter) ShouldKeepLooping() bool {
	return f.next.ShouldKeepLooping()
}

func (f *RepoFilter) DetectedChange(paths []string) {
	if f.opts.Gitignore && contains(paths, f.gitignore) {
		if err := f.reload(); err != nil {
			f.logger.Warn("failed to reload ignore rules, keeping previous rules", "error", err)
		}
	}

	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if !f.Ignored(p) {
			kept = append(kept, p)
		}
	}
	if dropped := len(paths) - len(kept); dropped > 0 {
		f.logger.Debug("ignored paths dropped", "dropped", dropped, "kept", len(kept))
	}
	if len(kept) > 0 {
		f.next.DetectedChange(kept)
	}
}

func (f *RepoFilter) OnError(err *watcher.InitError) {
	f.next.OnError(err)
}

// Ignored reports whether path is dropped by the filter.
func (f *RepoFilter) Ignored(path string) bool {
	for _, name := range gitDirIgnoredFiles {
		if path == f.gitDir+name {
			return true
		}
	}

	rel, err := filepath.Rel(f.workspace, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	f.mu.Lock()
	rules := f.rules
	f.mu.Unlock()

	for _, r := range rules {
		if r.match(rel, path) {
			return true
		}
	}
	return false
}

func (f *RepoFilter) reload() error {
	patterns := append([]string(nil), f.opts.Patterns...)
	if f.opts.Gitignore {
		fromFile, err := config.ReadPatterns(f.gitignore)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.gitignore, err)
		}
		patterns = append(patterns, fromFile...)
	}

	rules, err := compileRules(patterns)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.rules = rules
	f.mu.Unlock()
	f.logger.Debug("ignore rules loaded", "rules", len(rules))
	return nil
}

func compileRules(patterns []string) ([]rule, error) {
	rules := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		r := rule{pattern: p}
		if strings.HasSuffix(p, "/") {
			r.dirOnly = true
			p = strings.TrimRight(p, "/")
		}
		if strings.HasPrefix(p, "/") {
			r.anchored = true
			p = strings.TrimLeft(p, "/")
		} else if strings.Contains(p, "/") {
			r.anchored = true
		}
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", r.pattern, err)
		}
		r.g = g
		rules = append(rules, r)
	}
	return rules, nil
}

// match checks rel, a slash separated path relative to the work tree, and
// every directory above it. A match on a parent directory ignores the whole
// subtree.
func (r rule) match(rel, abs string) bool {
	parts := strings.Split(rel, "/")
	for i := range parts {
		last := i == len(parts)-1
		var candidate string
		if r.anchored {
			candidate = strings.Join(parts[:i+1], "/")
		} else {
			candidate = parts[i]
		}
		if !r.g.Match(candidate) {
			continue
		}
		if !last || !r.dirOnly || isDir(abs) {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func contains(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}
