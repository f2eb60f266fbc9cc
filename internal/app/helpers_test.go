package app

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/gitwatch/internal/config"
)

// setupTestEnv points HOME at a temp dir, loads the default config and
// restores the package globals afterwards.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GITWATCH_CONFIG", "")

	origCfg, origJournal, origConfigPath := cfg, journalPath, configPath
	t.Cleanup(func() {
		cfg, journalPath, configPath = origCfg, origJournal, origConfigPath
	})

	journalPath = ""
	configPath = ""
	loaded, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() failed: %v", err)
	}
	cfg = loaded
	return home
}

// newTestCmd returns a command whose output is captured in the buffer.
func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

// resetFlag restores a watch flag's value and Changed state after the test.
func resetFlag(t *testing.T, cmd *cobra.Command, name string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("flag --%s not registered", name)
	}
	orig := f.Value.String()
	t.Cleanup(func() {
		f.Value.Set(orig)
		f.Changed = false
	})
}

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
