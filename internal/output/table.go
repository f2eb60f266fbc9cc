// Package output provides terminal output utilities for gitwatch.
//
// This package includes:
//   - Table rendering for journal batches and watch sessions
//   - Spinners for daemon start and stop
//   - Human-readable formatting for dates and durations
//
// Tables use box-drawing rules and ANSI color codes, which are dropped when
// stdout is not a terminal or NO_COLOR is set.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/gitwatch/internal/store"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderBatchTable renders delivered batches in the order given. When paths
// has an entry for a batch, its paths are listed below the row.
func RenderBatchTable(batches []*store.Batch, paths map[int64][]string) string {
	if len(batches) == 0 {
		return "No batches recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-6s %-8s %-17s %-6s %s\n",
		"ID", "Session", "Delivered", "Paths", "Git"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, b := range batches {
		git := colorize(colorGray, "—")
		if b.GitDirChanged {
			git = colorize(colorYellow, "changed")
		}
		sb.WriteString(fmt.Sprintf("%-6d %-8d %-17s %-6d %s\n",
			b.ID,
			b.SessionID,
			formatRelativeTime(b.DeliveredAt),
			b.PathCount,
			git))

		for _, p := range paths[b.ID] {
			sb.WriteString("       ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// RenderSessionTable renders watch sessions in the order given.
func RenderSessionTable(sessions []*store.Session) string {
	if len(sessions) == 0 {
		return "No sessions recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-6s %-17s %-10s %-15s %s\n",
		"ID", "Started", "Duration", "Status", "Root"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, s := range sessions {
		sb.WriteString(fmt.Sprintf("%-6d %-17s %-10s %-15s %s\n",
			s.ID,
			formatRelativeTime(s.StartedAt),
			formatSessionDuration(s),
			formatSessionStatus(s),
			truncate(s.Root, 40)))
	}

	return sb.String()
}

// formatSessionStatus pads before colorizing so escape codes do not break
// column alignment.
func formatSessionStatus(s *store.Session) string {
	switch {
	case s.ErrorCode != "":
		return colorize(colorRed, fmt.Sprintf("%-15s", "failed: "+s.ErrorCode))
	case s.EndedAt == nil:
		return colorize(colorGreen, fmt.Sprintf("%-15s", "running"))
	default:
		return fmt.Sprintf("%-15s", "stopped")
	}
}

func formatSessionDuration(s *store.Session) string {
	if s.EndedAt == nil {
		return "—"
	}
	return FormatDuration(s.EndedAt.Sub(s.StartedAt))
}

// FormatDuration renders d with at most two units, e.g. "2h 5m" or "45s".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func FormatRelativeTime(t time.Time) string {
	return formatRelativeTime(t)
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate shortens s to maxLen, keeping the end of the path and marking the
// cut with "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-(maxLen-3):]
}
