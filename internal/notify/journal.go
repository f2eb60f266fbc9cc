package notify

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blackwell-systems/gitwatch/internal/store"
	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// Journal records a watch session and its batches in the history store.
// Write failures are logged and never end the session.
type Journal struct {
	mu        sync.Mutex
	store     *store.Store
	sessionID int64
	gitDir    string
	logger    *slog.Logger
	now       func() time.Time
	closed    bool
}

// NewJournal starts a session record for root. gitDir flags batches that
// touch the repository directory; pass "" to disable the flag.
func NewJournal(st *store.Store, root, exclusionRoot, gitDir string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	j := &Journal{store: st, gitDir: gitDir, logger: logger, now: time.Now}
	id, err := st.StartSession(root, exclusionRoot, j.now())
	if err != nil {
		return nil, err
	}
	j.sessionID = id
	j.logger = logger.With("session", id)
	return j, nil
}

// SessionID returns the journal's session record ID.
func (j *Journal) SessionID() int64 {
	return j.sessionID
}

func (j *Journal) ShouldKeepLooping() bool { return true }

func (j *Journal) DetectedChange(paths []string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.store.InsertBatch(j.sessionID, j.now(), paths, TouchesDir(paths, j.gitDir)); err != nil {
		j.logger.Warn("failed to record batch", "paths", len(paths), "error", err)
	}
}

func (j *Journal) OnError(err *watcher.InitError) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if recErr := j.store.RecordSessionError(j.sessionID, err.Code.String(), err.Message); recErr != nil {
		j.logger.Warn("failed to record session error", "error", recErr)
	}
}

// Close marks the session as ended. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.store.EndSession(j.sessionID, j.now())
}
