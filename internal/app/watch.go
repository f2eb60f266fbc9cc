package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gitwatch/internal/output"
	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

var (
	watchExclusionRoot string
	watchDebounce      time.Duration
	watchTick          time.Duration
	watchFormat        string
	watchNoJournal     bool
	watchNoGitignore   bool
	watchMaxBatches    int
	watchDaemon        bool
	watchDaemonChild   bool
	watchPIDFile       string
	watchLogFile       string
	watchStop          bool

	watchCmd = &cobra.Command{
		Use:   "watch [root]",
		Short: "Watch a work tree and report debounced change batches",
		Long: `Watch a git work tree recursively and report changed files in batches.

Changes are collected until the tree has been quiet for the debounce interval
(default 500ms) and then delivered as one batch. The quiet check runs once per
tick, so a batch arrives between one debounce and one debounce plus one tick
after the last change. Stopping delivers any pending batch first.

Watch modes:
  • Foreground (default): print batches to stdout, Ctrl+C to stop
  • Daemon: run in the background, batches go to the log file and journal
  • Stop: stop a running daemon

The root defaults to the current directory. Probe files written under the
exclusion root (default <root>/.git/) are never reported.`,
		Example: `  # Watch the current repository (Ctrl+C to stop)
  gitwatch watch

  # Emit JSON lines and exit after the first batch
  gitwatch watch ~/src/project --format json --max-batches 1

  # Run as background daemon
  gitwatch watch ~/src/project --daemon

  # Stop running daemon
  gitwatch watch --stop`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchExclusionRoot, "exclusion-root", "", "directory whose .probe-* files are never reported (default: <root>/.git/)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a batch is delivered")
	watchCmd.Flags().DurationVar(&watchTick, "tick", watcher.DefaultTick, "how often the session checks for stop and flush")
	watchCmd.Flags().StringVar(&watchFormat, "format", "text", "batch output format: text or json")
	watchCmd.Flags().BoolVar(&watchNoJournal, "no-journal", false, "do not record batches in the journal")
	watchCmd.Flags().BoolVar(&watchNoGitignore, "no-gitignore", false, "do not filter paths ignored by .gitignore")
	watchCmd.Flags().IntVar(&watchMaxBatches, "max-batches", 0, "exit after this many batches (0: no limit)")
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.gitwatch/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.gitwatch/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}

	opts, err := resolveWatchOptions(cmd, args)
	if err != nil {
		return err
	}

	if watchDaemon {
		return startWatchDaemon(cmd, opts)
	}

	if watchDaemonChild {
		// stdout and stderr are the log file here
		logger := newLogger(os.Stderr)
		s, err := newSession(opts, os.Stdout, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.runDaemon(context.Background(), watchPIDFile)
	}

	return runWatchForeground(cmd, opts)
}

// resolveWatchOptions merges the loaded config with explicitly set flags.
func resolveWatchOptions(cmd *cobra.Command, args []string) (watchOptions, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return watchOptions{}, fmt.Errorf("failed to resolve root: %w", err)
	}

	flags := cmd.Flags()
	opts := watchOptions{
		Root:       absRoot,
		Debounce:   cfg.Watch.Debounce,
		Tick:       cfg.Watch.Tick,
		Format:     cfg.Output.Format,
		Gitignore:  cfg.Ignore.Gitignore,
		MaxBatches: watchMaxBatches,
	}
	if flags.Changed("debounce") || opts.Debounce == 0 {
		opts.Debounce = watchDebounce
	}
	if flags.Changed("tick") || opts.Tick == 0 {
		opts.Tick = watchTick
	}
	if flags.Changed("format") || opts.Format == "" {
		opts.Format = watchFormat
	}
	if opts.Format != "text" && opts.Format != "json" {
		return watchOptions{}, fmt.Errorf("invalid --format %q: must be text or json", opts.Format)
	}
	if watchNoGitignore {
		opts.Gitignore = false
	}

	exclusion := cfg.Watch.ExclusionRoot
	if flags.Changed("exclusion-root") {
		exclusion = watchExclusionRoot
	}
	opts.ExclusionRoot, err = resolveExclusionRoot(absRoot, exclusion)
	if err != nil {
		return watchOptions{}, err
	}

	opts.Patterns, err = ignorePatterns(cfg.Ignore.Patterns)
	if err != nil {
		return watchOptions{}, err
	}

	if cfg.Journal.Enabled && !watchNoJournal {
		opts.Journal, err = getJournalPath()
		if err != nil {
			return watchOptions{}, fmt.Errorf("failed to get journal path: %w", err)
		}
	}
	return opts, nil
}

// daemonChildArgs passes the resolved options to the daemon child so it does
// not depend on the parent's working directory or environment.
func daemonChildArgs(opts watchOptions, pidFile, logFile string) []string {
	args := []string{
		opts.Root,
		"--exclusion-root", opts.ExclusionRoot,
		"--debounce", opts.Debounce.String(),
		"--tick", opts.Tick.String(),
		"--format", opts.Format,
		"--pid-file", pidFile,
		"--log-file", logFile,
	}
	if opts.Journal == "" {
		args = append(args, "--no-journal")
	} else {
		args = append(args, "--journal", opts.Journal)
	}
	if !opts.Gitignore {
		args = append(args, "--no-gitignore")
	}
	if opts.MaxBatches > 0 {
		args = append(args, "--max-batches", strconv.Itoa(opts.MaxBatches))
	}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

func stopWatchDaemon(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon").WithTimeout(10 * time.Second)
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	if !waitForDaemonExit(watchPIDFile, 10*time.Second) {
		spinner.Stop()
		return fmt.Errorf("daemon did not exit within 10s (PID file: %s)", watchPIDFile)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

// waitForDaemonExit polls until the daemon is gone or timeout passes.
func waitForDaemonExit(pidFile string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if running, err := watcher.IsDaemonRunning(pidFile); err == nil && !running {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func startWatchDaemon(cmd *cobra.Command, opts watchOptions) error {
	out := cmd.OutOrStdout()

	spinner := output.NewSpinner("Starting daemon")
	spinner.Start()
	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, daemonChildArgs(opts, watchPIDFile, watchLogFile)); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Fprintf(out, "\nWatching %s\n", opts.Root)
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	if opts.Journal != "" {
		fmt.Fprintf(out, "  Journal:  %s\n", opts.Journal)
	}
	fmt.Fprintf(out, "\nTo stop: gitwatch watch --stop\n")

	return nil
}

func runWatchForeground(cmd *cobra.Command, opts watchOptions) error {
	errOut := cmd.ErrOrStderr()
	logger := newLogger(errOut)

	s, err := newSession(opts, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(errOut, "Watching %s (press Ctrl+C to stop)...\n", opts.Root)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(errOut, "\nReceived signal %v, stopping...\n", sig)
			s.Stop()
		case <-finished:
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return s.run(ctx)
}
