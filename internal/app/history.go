package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gitwatch/internal/output"
	"github.com/blackwell-systems/gitwatch/internal/store"
)

var (
	historySession int64
	historyLimit   int
	historySince   time.Duration
	historyPaths   bool
	historyPrune   time.Duration

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List batches recorded in the journal",
		Long: `List delivered change batches from the journal, most recent first.

Use --paths to list the changed files of each batch, and --prune to delete
batches older than a given age.`,
		Example: `  # Last 20 batches
  gitwatch history

  # Batches of one session with their paths
  gitwatch history --session 3 --paths

  # Batches from the last hour
  gitwatch history --since 1h

  # Delete batches older than a week
  gitwatch history --prune 168h`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	sessionsLimit int

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "List watch sessions recorded in the journal",
		Long: `List watch sessions from the journal, most recent first, with their
duration and the error code of sessions that failed to start.`,
		Example: `  gitwatch sessions
  gitwatch sessions --limit 5`,
		Args: cobra.NoArgs,
		RunE: runSessions,
	}
)

func init() {
	historyCmd.Flags().Int64Var(&historySession, "session", 0, "only show batches of this session")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of batches to show (0: all)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only show batches delivered within this duration")
	historyCmd.Flags().BoolVar(&historyPaths, "paths", false, "list the paths of each batch")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete batches older than this duration")

	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum number of sessions to show (0: all)")

	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(sessionsCmd)
}

// openJournal opens an existing journal. A missing journal is reported as
// store.ErrNotInitialized.
func openJournal() (*store.Store, error) {
	path, err := getJournalPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get journal path: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, store.ErrNotInitialized
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return st, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	st, err := openJournal()
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "No journal yet. Run 'gitwatch watch' to start recording batches.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	if historyPrune > 0 {
		n, err := st.DeleteBatchesBefore(time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d batch(es) older than %s\n", n, historyPrune)
		return nil
	}

	q := store.BatchQuery{SessionID: historySession, Limit: historyLimit}
	if historySince > 0 {
		q.Since = time.Now().Add(-historySince)
	}
	batches, err := st.ListBatches(q)
	if err != nil {
		return err
	}

	var paths map[int64][]string
	if historyPaths {
		paths = make(map[int64][]string, len(batches))
		for _, b := range batches {
			p, err := st.GetBatchPaths(b.ID)
			if err != nil {
				return err
			}
			paths[b.ID] = p
		}
	}

	fmt.Fprint(out, output.RenderBatchTable(batches, paths))
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	st, err := openJournal()
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "No journal yet. Run 'gitwatch watch' to start recording sessions.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(sessionsLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderSessionTable(sessions))
	return nil
}
