package watcher

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock shared by a scriptSource and the
// Controller under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// step is one scripted result of Source.Next. The clock is advanced by
// advance before the result is returned.
type step struct {
	paths   []string
	err     error
	advance time.Duration
}

func event(advance time.Duration, paths ...string) step {
	return step{paths: paths, advance: advance}
}

func timeout(advance time.Duration) step {
	return step{err: ErrTimeout, advance: advance}
}

// scriptSource replays steps and reports exhausted once they run out, at
// which point every Next is a timeout of the full tick.
type scriptSource struct {
	mu        sync.Mutex
	clock     *fakeClock
	steps     []step
	startErr  error
	root      string
	starts    int
	stops     int
	stopErr   error
	exhausted bool
}

func newScriptSource(clock *fakeClock, steps ...step) *scriptSource {
	return &scriptSource{clock: clock, steps: steps}
}

func (s *scriptSource) Start(root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.root = root
	return s.startErr
}

func (s *scriptSource) Next(tick time.Duration) (RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		s.exhausted = true
		s.clock.Advance(tick)
		return RawEvent{}, ErrTimeout
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	s.clock.Advance(st.advance)
	if st.err != nil {
		return RawEvent{}, st.err
	}
	return RawEvent{Paths: st.paths}, nil
}

func (s *scriptSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.stopErr
}

func (s *scriptSource) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

func (s *scriptSource) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// recordingNotifier captures everything a Controller reports.
type recordingNotifier struct {
	mu      sync.Mutex
	keep    func() bool
	batches [][]string
	errs    []*InitError
}

func (n *recordingNotifier) ShouldKeepLooping() bool {
	if n.keep == nil {
		return true
	}
	return n.keep()
}

func (n *recordingNotifier) DetectedChange(paths []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, append([]string(nil), paths...))
}

func (n *recordingNotifier) OnError(err *InitError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) Batches() [][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]string(nil), n.batches...)
}

func (n *recordingNotifier) Errors() []*InitError {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*InitError(nil), n.errs...)
}

// allPaths flattens every delivered batch.
func (n *recordingNotifier) allPaths() []string {
	var out []string
	for _, b := range n.Batches() {
		out = append(out, b...)
	}
	return out
}

// newScriptedController wires a Controller to src and a notifier that stops
// once the script is exhausted.
func newScriptedController(t *testing.T, src *scriptSource, debounce time.Duration) (*Controller, *recordingNotifier) {
	t.Helper()
	c := New(Config{
		Debounce:  debounce,
		Tick:      100 * time.Millisecond,
		Logger:    testLogger(t),
		NewSource: func(*slog.Logger) Source { return src },
		Now:       src.clock.Now,
	})
	n := &recordingNotifier{keep: func() bool { return !src.Exhausted() }}
	return c, n
}

// testLogger routes log output through t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, within time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
