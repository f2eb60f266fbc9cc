package notify

import (
	"sync"

	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// recorder is a watcher.Notifier that captures what it receives.
type recorder struct {
	mu      sync.Mutex
	keep    bool
	batches [][]string
	errs    []*watcher.InitError
}

func newRecorder() *recorder {
	return &recorder{keep: true}
}

func (r *recorder) ShouldKeepLooping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keep
}

func (r *recorder) DetectedChange(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]string(nil), paths...))
}

func (r *recorder) OnError(err *watcher.InitError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Batches() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}
