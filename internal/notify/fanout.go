package notify

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// Fanout delivers every callback to each member in order. The session keeps
// looping only while every member wants it to.
type Fanout []watcher.Notifier

func (f Fanout) ShouldKeepLooping() bool {
	for _, n := range f {
		if !n.ShouldKeepLooping() {
			return false
		}
	}
	return true
}

// DetectedChange passes the same slice to every member; members must not
// modify it.
func (f Fanout) DetectedChange(paths []string) {
	for _, n := range f {
		n.DetectedChange(paths)
	}
}

func (f Fanout) OnError(err *watcher.InitError) {
	for _, n := range f {
		n.OnError(err)
	}
}

// Stopper ends a session cooperatively through ShouldKeepLooping, either
// when Stop is called or once limit batches have been delivered.
type Stopper struct {
	next    watcher.Notifier
	limit   int64
	seen    atomic.Int64
	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// NewStopper wraps next. A limit of zero or less means no batch limit.
func NewStopper(next watcher.Notifier, limit int) *Stopper {
	return &Stopper{next: next, limit: int64(limit), done: make(chan struct{})}
}

// Stop makes the next ShouldKeepLooping return false.
func (s *Stopper) Stop() {
	s.stopped.Store(true)
	s.once.Do(func() { close(s.done) })
}

// Done is closed once Stop was called or the batch limit was reached.
func (s *Stopper) Done() <-chan struct{} {
	return s.done
}

func (s *Stopper) ShouldKeepLooping() bool {
	if s.stopped.Load() {
		return false
	}
	return s.next.ShouldKeepLooping()
}

func (s *Stopper) DetectedChange(paths []string) {
	s.next.DetectedChange(paths)
	if s.limit > 0 && s.seen.Add(1) >= s.limit {
		s.Stop()
	}
}

func (s *Stopper) OnError(err *watcher.InitError) {
	s.next.OnError(err)
}

// TouchesDir reports whether any path lies below dir. dir must end with a
// path separator.
func TouchesDir(paths []string, dir string) bool {
	if dir == "" {
		return false
	}
	for _, p := range paths {
		if strings.HasPrefix(p, dir) {
			return true
		}
	}
	return false
}
