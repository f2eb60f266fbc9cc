package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gitwatch/internal/output"
	"github.com/blackwell-systems/gitwatch/internal/store"
	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status and journal statistics",
	Long: `Display the current status of the gitwatch daemon and the journal.

Shows:
  • Daemon running status and PID
  • Journal location and size
  • Number of sessions and batches recorded
  • When the last batch was delivered`,
	Example: `  # Check status
  gitwatch status`,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}

	path, err := getJournalPath()
	if err != nil {
		return fmt.Errorf("failed to get journal path: %w", err)
	}

	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	const label = "%-10s"

	fmt.Fprintln(out)
	if running {
		pid, _ := watcher.ReadPID(pidFile)
		fmt.Fprintf(out, label+"running (since %s, PID %d)\n", "Daemon:", daemonSince(pidFile), pid)
	} else {
		fmt.Fprintf(out, label+"stopped  (run 'gitwatch watch --daemon')\n", "Daemon:")
	}

	fi, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(out, label+"not created yet (%s)\n", "Journal:", path)
		fmt.Fprintln(out)
		return nil
	}
	fmt.Fprintf(out, label+"%s · %s\n", "Journal:", path, formatSize(fi.Size()))

	st, err := store.New(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer st.Close()

	writeJournalStats(out, st, label)
	fmt.Fprintln(out)
	return nil
}

func writeJournalStats(out io.Writer, st *store.Store, label string) {
	sessions, err := st.GetSessionCount()
	if err != nil {
		fmt.Fprintf(out, label+"unavailable (%v)\n", "Sessions:", err)
		return
	}
	batches, _ := st.GetBatchCount()
	last, _ := st.GetLastBatchTime()

	fmt.Fprintf(out, label+"%s\n", "Sessions:", formatNumber(sessions))
	fmt.Fprintf(out, label+"%s · last %s\n", "Batches:", formatNumber(batches), output.FormatRelativeTime(last))
}

// daemonSince returns the age of the PID file, a proxy for daemon uptime.
func daemonSince(pidFile string) string {
	fi, err := os.Stat(pidFile)
	if err != nil {
		return "unknown"
	}
	return output.FormatDuration(time.Since(fi.ModTime())) + " ago"
}

// formatNumber formats a number with thousands separators
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatNumber(n/1000), n%1000)
}

// formatSize converts bytes to human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
