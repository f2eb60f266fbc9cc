package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/gitwatch/internal/config"
	"github.com/blackwell-systems/gitwatch/internal/notify"
	"github.com/blackwell-systems/gitwatch/internal/store"
	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// watchOptions is the resolved configuration of one watch session.
type watchOptions struct {
	Root          string
	ExclusionRoot string
	Debounce      time.Duration
	Tick          time.Duration
	Format        string
	Journal       string // empty disables the journal
	Gitignore     bool
	Patterns      []string
	MaxBatches    int
}

// session wires a controller to its sinks:
// controller -> repo filter -> stopper -> printer + journal.
type session struct {
	opts    watchOptions
	ctrl    *watcher.Controller
	filter  *notify.RepoFilter
	stopper *notify.Stopper
	store   *store.Store
	journal *notify.Journal
	logger  *slog.Logger
}

func newSession(opts watchOptions, out io.Writer, logger *slog.Logger) (*session, error) {
	s := &session{
		opts:   opts,
		logger: logger,
		ctrl: watcher.New(watcher.Config{
			Debounce: opts.Debounce,
			Tick:     opts.Tick,
			Logger:   logger,
		}),
	}

	gitDir := notify.GitDir(opts.Root)
	sinks := notify.Fanout{notify.NewPrinter(out, opts.Format, gitDir)}

	if opts.Journal != "" {
		st, err := store.New(opts.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		if err := st.CreateSchema(); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create journal schema: %w", err)
		}
		j, err := notify.NewJournal(st, opts.Root, opts.ExclusionRoot, gitDir, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to start journal session: %w", err)
		}
		s.store = st
		s.journal = j
		sinks = append(sinks, j)
	}

	s.stopper = notify.NewStopper(sinks, opts.MaxBatches)

	filter, err := notify.NewRepoFilter(s.stopper, opts.Root, notify.FilterOptions{
		Patterns:  opts.Patterns,
		Gitignore: opts.Gitignore,
		Logger:    logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.filter = filter
	return s, nil
}

// run watches until ctx is done, Stop is called or the batch limit is hit.
func (s *session) run(ctx context.Context) error {
	err := s.ctrl.Watch(ctx, s.opts.Root, s.opts.ExclusionRoot, s.filter)
	s.logStats()
	return wrapInitError(err)
}

// runDaemon is run for the daemon child; signals stop the session.
func (s *session) runDaemon(ctx context.Context, pidFile string) error {
	err := watcher.RunDaemon(ctx, pidFile, s.ctrl, s.opts.Root, s.opts.ExclusionRoot, s.filter)
	s.logStats()
	return wrapInitError(err)
}

// Stop ends the session at the next tick.
func (s *session) Stop() {
	s.stopper.Stop()
	s.ctrl.Stop()
}

// Close ends the journal session record and closes the journal.
func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	var err error
	if s.journal != nil {
		err = s.journal.Close()
	}
	if closeErr := s.store.Close(); err == nil {
		err = closeErr
	}
	s.store = nil
	return err
}

func (s *session) logStats() {
	st := s.ctrl.Stats()
	s.logger.Info("watch session ended",
		"root", s.opts.Root,
		"events", st.EventsReceived,
		"paths_dropped", st.PathsDropped,
		"batches", st.BatchesFlushed,
		"paths_delivered", st.PathsDelivered,
		"receive_errors", st.ReceiveErrors,
	)
}

func wrapInitError(err error) error {
	if err == nil {
		return nil
	}
	var initErr *watcher.InitError
	if errors.As(err, &initErr) {
		return fmt.Errorf("watch failed (%s): %w", initErr.Code, err)
	}
	return err
}

// resolveExclusionRoot defaults to <root>/.git/ and always ends with a
// separator so probe prefixes match whole directory names.
func resolveExclusionRoot(root, exclusionRoot string) (string, error) {
	if exclusionRoot == "" {
		return notify.GitDir(root), nil
	}
	abs, err := filepath.Abs(exclusionRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve exclusion root: %w", err)
	}
	return abs + string(filepath.Separator), nil
}

// ignorePatterns merges configured patterns with the user's ignore file.
func ignorePatterns(fromConfig []string) ([]string, error) {
	patterns := append([]string(nil), fromConfig...)
	dir, err := config.Dir()
	if err != nil {
		return patterns, nil
	}
	fromFile, err := config.LoadIgnoreFile(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	return append(patterns, fromFile...), nil
}
