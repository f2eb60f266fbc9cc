package app

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/gitwatch/internal/store"
)

// seedJournal creates the default journal with two sessions and three
// batches, the oldest delivered two days ago.
func seedJournal(t *testing.T) (first, second int64) {
	t.Helper()
	path, err := getJournalPath()
	if err != nil {
		t.Fatalf("getJournalPath() failed: %v", err)
	}
	st, err := store.New(path)
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	defer st.Close()
	if err := st.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}

	now := time.Now()
	first, _ = st.StartSession("/srv/alpha", "/srv/alpha/.git/", now.Add(-49*time.Hour))
	second, _ = st.StartSession("/srv/beta", "/srv/beta/.git/", now.Add(-time.Hour))
	st.EndSession(first, now.Add(-47*time.Hour))

	mustInsert := func(session int64, at time.Time, paths ...string) {
		if _, err := st.InsertBatch(session, at, paths, false); err != nil {
			t.Fatalf("InsertBatch() failed: %v", err)
		}
	}
	mustInsert(first, now.Add(-48*time.Hour), "/srv/alpha/old.go")
	mustInsert(second, now.Add(-30*time.Minute), "/srv/beta/a.go", "/srv/beta/b.go")
	mustInsert(second, now.Add(-time.Minute), "/srv/beta/c.go")
	return first, second
}

// withHistoryFlags resets the history flag globals after the test.
func withHistoryFlags(t *testing.T) {
	t.Helper()
	session, limit, since, paths, prune := historySession, historyLimit, historySince, historyPaths, historyPrune
	t.Cleanup(func() {
		historySession, historyLimit, historySince, historyPaths, historyPrune = session, limit, since, paths, prune
	})
	historySession, historyLimit, historySince, historyPaths, historyPrune = 0, 20, 0, false, 0
}

func TestHistoryCommand(t *testing.T) {
	if historyCmd.Name() != "history" {
		t.Errorf("expected name to be 'history', got '%s'", historyCmd.Name())
	}
	for _, name := range []string{"session", "limit", "since", "paths", "prune"} {
		if historyCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag '%s' to exist", name)
		}
	}
	if sessionsCmd.Flags().Lookup("limit") == nil {
		t.Error("expected sessions --limit flag to exist")
	}
}

func TestRunHistory_NoJournal(t *testing.T) {
	setupTestEnv(t)
	withHistoryFlags(t)

	cmd, buf := newTestCmd()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No journal yet") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestRunHistory_ListWithPaths(t *testing.T) {
	setupTestEnv(t)
	withHistoryFlags(t)
	seedJournal(t)
	historyPaths = true

	cmd, buf := newTestCmd()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory() failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"/srv/alpha/old.go", "/srv/beta/a.go", "/srv/beta/b.go", "/srv/beta/c.go"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %s:\n%s", want, got)
		}
	}
	if strings.Index(got, "c.go") > strings.Index(got, "a.go") {
		t.Errorf("expected most recent batch first:\n%s", got)
	}
}

func TestRunHistory_Filters(t *testing.T) {
	setupTestEnv(t)
	withHistoryFlags(t)
	first, _ := seedJournal(t)

	t.Run("session", func(t *testing.T) {
		historySession = first
		historyPaths = true
		defer func() { historySession, historyPaths = 0, false }()

		cmd, buf := newTestCmd()
		if err := runHistory(cmd, nil); err != nil {
			t.Fatalf("runHistory() failed: %v", err)
		}
		if !strings.Contains(buf.String(), "old.go") || strings.Contains(buf.String(), "/srv/beta") {
			t.Errorf("session filter not applied:\n%s", buf.String())
		}
	})

	t.Run("since", func(t *testing.T) {
		historySince = time.Hour
		historyPaths = true
		defer func() { historySince, historyPaths = 0, false }()

		cmd, buf := newTestCmd()
		if err := runHistory(cmd, nil); err != nil {
			t.Fatalf("runHistory() failed: %v", err)
		}
		if strings.Contains(buf.String(), "old.go") {
			t.Errorf("since filter not applied:\n%s", buf.String())
		}
	})
}

func TestRunHistory_Prune(t *testing.T) {
	setupTestEnv(t)
	withHistoryFlags(t)
	seedJournal(t)
	historyPrune = 24 * time.Hour

	cmd, buf := newTestCmd()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Deleted 1 batch(es)") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	st, err := openJournal()
	if err != nil {
		t.Fatalf("openJournal() failed: %v", err)
	}
	defer st.Close()
	count, err := st.GetBatchCount()
	if err != nil {
		t.Fatalf("GetBatchCount() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("batch count after prune = %d, want 2", count)
	}
}

func TestRunSessions(t *testing.T) {
	setupTestEnv(t)
	origLimit := sessionsLimit
	defer func() { sessionsLimit = origLimit }()
	sessionsLimit = 20

	cmd, buf := newTestCmd()
	if err := runSessions(cmd, nil); err != nil {
		t.Fatalf("runSessions() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No journal yet") {
		t.Errorf("unexpected output without journal: %s", buf.String())
	}

	seedJournal(t)
	cmd, buf = newTestCmd()
	if err := runSessions(cmd, nil); err != nil {
		t.Fatalf("runSessions() failed: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "/srv/alpha") || !strings.Contains(got, "/srv/beta") {
		t.Errorf("sessions missing:\n%s", got)
	}
	if !strings.Contains(got, "running") || !strings.Contains(got, "stopped") {
		t.Errorf("session status missing:\n%s", got)
	}
}
