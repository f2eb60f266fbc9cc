package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gitwatch/internal/config"
)

var (
	journalPath string
	configPath  string
	logLevel    string
	logFormat   string

	// cfg is loaded before any subcommand runs.
	cfg config.Config

	// RootCmd is the root command for gitwatch
	RootCmd = &cobra.Command{
		Use:   "gitwatch",
		Short: "Debounced change notifications for git work trees",
		Long: `gitwatch watches a git work tree recursively and reports file changes in
debounced batches: a burst of writes becomes one notification once the tree
has been quiet for the debounce interval.

Directories and the probe files a client writes under the repository
directory (.git/.probe-*) are never reported. Paths ignored by .gitignore and
the commit message files git rewrites while committing are filtered out.

Every delivered batch is recorded in a local journal so it can be reviewed
later with 'gitwatch history'.

Examples:
  # Watch the current repository in the foreground
  gitwatch watch

  # Watch a repository in the background
  gitwatch watch ~/src/project --daemon

  # Review what changed
  gitwatch history --paths

  # Check daemon and journal status
  gitwatch status`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "gitwatch: debounced change notifications for git work trees")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'gitwatch watch' in a repository to start watching.")
			fmt.Fprintln(out, "Run 'gitwatch --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "journal database path (default: ~/.gitwatch/gitwatch.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/gitwatch/config.toml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config file and lets explicitly set global flags
// override it.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// newLogger builds the process logger from the loaded config.
func newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getJournalPath returns the journal path from the flag, the config or the
// default, creating its directory.
func getJournalPath() (string, error) {
	path := journalPath
	if path == "" {
		path = cfg.Journal.Path
	}
	if path == "" {
		def, err := config.DefaultJournalPath()
		if err != nil {
			return "", err
		}
		path = def
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create journal directory: %w", err)
	}
	return path, nil
}

// getDataDir returns ~/.gitwatch, creating it if needed.
func getDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".gitwatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create gitwatch directory: %w", err)
	}
	return dir, nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}

// ExitError carries a process exit status other than 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }
