package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gitwatch/internal/store"
	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// inotifyDir holds the kernel limits a recursive watch depends on.
var inotifyDir = "/proc/sys/fs/inotify"

var doctorCmd = &cobra.Command{
	Use:   "doctor [root]",
	Short: "Diagnose common issues and check system health",
	Long: `Runs diagnostic checks on your gitwatch installation.

Checks:
  • Journal exists and is accessible
  • Daemon is running
  • Kernel watch limits (inotify) can cover the work tree
  • Recommends next steps

Exits with status 1 on critical issues and 2 when only warnings were found.`,
	Example: `  gitwatch doctor
  gitwatch doctor ~/src/project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// doctorReport counts critical and warning-level issues separately so the
// exit status can tell them apart.
type doctorReport struct {
	out      io.Writer
	critical int
	warnings int
}

func (r *doctorReport) ok(format string, args ...any) {
	fmt.Fprintf(r.out, "✓ "+format+"\n", args...)
}

func (r *doctorReport) warn(action, format string, args ...any) {
	fmt.Fprintf(r.out, "⚠ "+format+"\n", args...)
	if action != "" {
		fmt.Fprintf(r.out, "  Action: %s\n", action)
	}
	r.warnings++
}

func (r *doctorReport) fail(action, format string, args ...any) {
	fmt.Fprintf(r.out, "✗ "+format+"\n", args...)
	if action != "" {
		fmt.Fprintf(r.out, "  Action: %s\n", action)
	}
	r.critical++
}

func runDoctor(cmd *cobra.Command, args []string) error {
	r := &doctorReport{out: cmd.OutOrStdout()}
	fmt.Fprintln(r.out, "Running gitwatch diagnostics...")
	fmt.Fprintln(r.out)

	checkJournal(r)
	checkDaemon(r)

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	checkWatchLimits(r, root)

	fmt.Fprintln(r.out)
	if r.critical == 0 && r.warnings == 0 {
		fmt.Fprintln(r.out, "✓ All checks passed!")
		return nil
	}

	if r.critical > 0 {
		fmt.Fprintf(r.out, "Found %d critical issue(s) and %d warning(s).\n", r.critical, r.warnings)
		return errors.New("diagnostics failed")
	}

	fmt.Fprintf(r.out, "Found %d warning(s). gitwatch is functional but not fully configured.\n", r.warnings)
	return &ExitError{Code: 2, Err: errors.New("diagnostics found warnings")}
}

func checkJournal(r *doctorReport) {
	if !cfg.Journal.Enabled && journalPath == "" {
		r.ok("Journal disabled by config")
		return
	}

	path, err := getJournalPath()
	if err != nil {
		r.fail("", "Journal path error: %v", err)
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.warn("Run 'gitwatch watch' to create it", "Journal not found at: %s", path)
		return
	}
	r.ok("Journal found: %s", path)

	st, err := store.New(path)
	if err != nil {
		r.fail("", "Cannot open journal: %v", err)
		return
	}
	defer st.Close()

	sessions, err := st.GetSessionCount()
	switch {
	case errors.Is(err, store.ErrNotInitialized):
		r.warn("Run 'gitwatch watch' to initialize it", "Journal has no schema")
	case err != nil:
		r.fail("", "Cannot read journal: %v", err)
	default:
		r.ok("Journal is accessible (%d sessions)", sessions)
	}
}

func checkDaemon(r *doctorReport) {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		r.warn("", "Failed to get PID file path: %v", err)
		return
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	switch {
	case err != nil:
		r.warn("", "Failed to check daemon status: %v", err)
	case !running:
		r.warn("Run 'gitwatch watch --daemon' for background watching", "Daemon not running")
	default:
		pid, _ := watcher.ReadPID(pidFile)
		r.ok("Daemon running (PID %d)", pid)
	}
}

// checkWatchLimits compares the directories below root with the per-user
// inotify watch limit. Each directory costs one watch.
func checkWatchLimits(r *doctorReport, root string) {
	maxWatches, err := readProcInt(filepath.Join(inotifyDir, "max_user_watches"))
	if err != nil {
		r.warn("", "Cannot read inotify watch limit: %v", err)
		return
	}
	if maxInstances, err := readProcInt(filepath.Join(inotifyDir, "max_user_instances")); err == nil {
		r.ok("inotify limits: %d watches, %d instances", maxWatches, maxInstances)
	} else {
		r.ok("inotify limits: %d watches", maxWatches)
	}

	dirs, err := countDirs(root)
	if err != nil {
		r.warn("", "Cannot scan %s: %v", root, err)
		return
	}
	if dirs > maxWatches {
		r.fail("Raise fs.inotify.max_user_watches (sysctl -w fs.inotify.max_user_watches=524288)",
			"%s has %d directories, more than the %d watch limit (watch would fail with %s)",
			root, dirs, maxWatches, watcher.CodeMaxFilesWatch)
		return
	}
	r.ok("%s needs %d of %d watches", root, dirs, maxWatches)
}

func readProcInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid value in %s: %w", path, err)
	}
	return n, nil
}

// countDirs counts root and every readable directory below it.
func countDirs(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}
