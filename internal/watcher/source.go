package watcher

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RawEvent is one change notification as reported by the backend. It is
// consumed immediately by the classifier and never stored.
type RawEvent struct {
	Paths []string
	Op    fsnotify.Op
}

// Source is the platform change-notification mechanism driven by the Controller.
type Source interface {
	// Start registers a recursive watch on root.
	Start(root string) error
	// Next blocks for at most timeout. It returns ErrTimeout when nothing
	// arrived, ErrSourceClosed once the backend is gone, or a receive error.
	Next(timeout time.Duration) (RawEvent, error)
	// Stop unregisters the watch. Failures are best-effort.
	Stop() error
}

// fsSource emulates a recursive watch on top of fsnotify by adding every
// directory below root, and every directory created later.
type fsSource struct {
	watcher *fsnotify.Watcher
	root    string
	logger  *slog.Logger
	timer   *time.Timer
}

func newFSSource(logger *slog.Logger) Source {
	return &fsSource{logger: logger}
}

func (s *fsSource) Start(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return invalidConfig("watch root %q is not a directory", root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = w
	s.root = root

	if err := w.Add(root); err != nil {
		w.Close()
		s.watcher = nil
		return err
	}
	if _, err := s.addTree(root, false); err != nil {
		w.Close()
		s.watcher = nil
		return err
	}
	return nil
}

// addTree adds every directory below dir. Only watch-limit exhaustion is
// returned; unreadable subtrees are logged and skipped. When collect is set
// the regular files found on the way are returned.
func (s *fsSource) addTree(dir string, collect bool) ([]string, error) {
	var files []string
	var limitErr error
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			if collect {
				files = append(files, path)
			}
			return nil
		}
		if path == s.root {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			if isWatchLimit(err) {
				limitErr = err
				return filepath.SkipAll
			}
			s.logger.Warn("failed to watch directory", "path", path, "error", err)
			return filepath.SkipDir
		}
		return nil
	})
	if limitErr != nil {
		return files, limitErr
	}
	return files, err
}

func (s *fsSource) Next(timeout time.Duration) (RawEvent, error) {
	if s.watcher == nil {
		return RawEvent{}, ErrSourceClosed
	}
	if s.timer == nil {
		s.timer = time.NewTimer(timeout)
	} else {
		s.timer.Reset(timeout)
	}

	select {
	case event, ok := <-s.watcher.Events:
		if !ok {
			return s.closed()
		}
		s.stopTimer()
		return s.expand(event), nil
	case err, ok := <-s.watcher.Errors:
		if !ok {
			return s.closed()
		}
		s.stopTimer()
		return RawEvent{}, err
	case <-s.timer.C:
		return RawEvent{}, ErrTimeout
	}
}

// closed waits out the tick so a dead backend cannot spin the loop.
func (s *fsSource) closed() (RawEvent, error) {
	<-s.timer.C
	return RawEvent{}, ErrSourceClosed
}

func (s *fsSource) stopTimer() {
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
}

// expand turns an fsnotify event into a RawEvent. A newly created directory
// is watched on the spot and the files already inside it are reported with
// it, since their own Create events fired before the watch existed.
func (s *fsSource) expand(event fsnotify.Event) RawEvent {
	raw := RawEvent{Paths: []string{event.Name}, Op: event.Op}
	if !event.Has(fsnotify.Create) {
		return raw
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return raw
	}
	files, err := s.addTree(event.Name, true)
	if err != nil {
		s.logger.Warn("failed to watch new subtree", "path", event.Name, "error", err)
	}
	raw.Paths = append(raw.Paths, files...)
	return raw
}

func (s *fsSource) Stop() error {
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.watcher == nil {
		return nil
	}
	w := s.watcher
	s.watcher = nil
	err := w.Remove(s.root)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}
