package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/gitwatch/internal/store"
)

func TestRenderBatchTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	now := time.Now()

	tests := []struct {
		name     string
		batches  []*store.Batch
		paths    map[int64][]string
		contains []string
		excludes []string
	}{
		{
			name:     "empty batches",
			batches:  []*store.Batch{},
			contains: []string{"No batches recorded"},
		},
		{
			name: "single batch",
			batches: []*store.Batch{
				{ID: 7, SessionID: 2, DeliveredAt: now.Add(-5 * time.Minute), PathCount: 3},
			},
			contains: []string{"7", "2", "5 minutes ago", "3", "—"},
			excludes: []string{"changed"},
		},
		{
			name: "git dir changed with paths",
			batches: []*store.Batch{
				{ID: 9, SessionID: 1, DeliveredAt: now.Add(-2 * time.Hour), PathCount: 2, GitDirChanged: true},
				{ID: 8, SessionID: 1, DeliveredAt: now.Add(-3 * time.Hour), PathCount: 1},
			},
			paths: map[int64][]string{
				9: {"/repo/.git/index", "/repo/main.go"},
			},
			contains: []string{"changed", "2 hours ago", "/repo/.git/index", "/repo/main.go", "3 hours ago"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderBatchTable(tt.batches, tt.paths)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderBatchTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
			for _, unexpected := range tt.excludes {
				if strings.Contains(result, unexpected) {
					t.Errorf("RenderBatchTable() should not contain %q\nGot:\n%s", unexpected, result)
				}
			}
		})
	}
}

func TestRenderBatchTable_KeepsOrder(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	now := time.Now()
	batches := []*store.Batch{
		{ID: 2, SessionID: 1, DeliveredAt: now.Add(-time.Hour), PathCount: 1},
		{ID: 1, SessionID: 1, DeliveredAt: now, PathCount: 1},
	}

	lines := strings.Split(RenderBatchTable(batches, nil), "\n")
	if !strings.HasPrefix(lines[2], "2 ") || !strings.HasPrefix(lines[3], "1 ") {
		t.Errorf("rows reordered:\n%s", strings.Join(lines, "\n"))
	}
}

func TestRenderSessionTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	now := time.Now()
	ended := now.Add(-1*time.Hour + 90*time.Second)

	sessions := []*store.Session{
		{ID: 3, Root: "/home/user/repo", StartedAt: now.Add(-30 * time.Second)},
		{ID: 2, Root: "/home/user/repo", StartedAt: now.Add(-1 * time.Hour), EndedAt: &ended},
		{ID: 1, Root: "/missing", StartedAt: now.Add(-48 * time.Hour), EndedAt: &ended, ErrorCode: "PathNotFound"},
	}

	result := RenderSessionTable(sessions)
	for _, expected := range []string{
		"running", "just now",
		"stopped", "1 hour ago", "1m 30s",
		"failed: PathNotFound", "2 days ago", "/missing",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderSessionTable() missing expected string %q\nGot:\n%s", expected, result)
		}
	}

	if got := RenderSessionTable(nil); !strings.Contains(got, "No sessions recorded") {
		t.Errorf("RenderSessionTable(nil) = %q", got)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"zero time", time.Time{}, "never"},
		{"just now", now.Add(-30 * time.Second), "just now"},
		{"one minute ago", now.Add(-1 * time.Minute), "1 minute ago"},
		{"minutes ago", now.Add(-45 * time.Minute), "45 minutes ago"},
		{"one hour ago", now.Add(-1 * time.Hour), "1 hour ago"},
		{"hours ago", now.Add(-3 * time.Hour), "3 hours ago"},
		{"one day ago", now.Add(-24 * time.Hour), "1 day ago"},
		{"days ago", now.Add(-5 * 24 * time.Hour), "5 days ago"},
		{"one week ago", now.Add(-7 * 24 * time.Hour), "1 week ago"},
		{"weeks ago", now.Add(-14 * 24 * time.Hour), "2 weeks ago"},
		{"one month ago", now.Add(-30 * 24 * time.Hour), "1 month ago"},
		{"months ago", now.Add(-90 * 24 * time.Hour), "3 months ago"},
		{"one year ago", now.Add(-365 * 24 * time.Hour), "1 year ago"},
		{"years ago", now.Add(-730 * 24 * time.Hour), "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatRelativeTime(tt.time)
			if got != tt.want {
				t.Errorf("FormatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "<1s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute + 10*time.Second, "2h 5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"shorter than max", "/repo", 10, "/repo"},
		{"equal to max", "/repo", 5, "/repo"},
		{"longer than max", "/home/user/repo", 8, ".../repo"},
		{"very short max", "/repo", 2, "po"},
		{"max of 4", "/home/user/repo", 4, "...o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
