package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSpinner_NonTTYPrintsOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Starting watch daemon")
	s.SetWriter(buf)

	s.Start()
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if got := buf.String(); got != "Starting watch daemon...\n" {
		t.Errorf("non-TTY output = %q, want the message once", got)
	}
}

func TestSpinner_StartStop(t *testing.T) {
	s := NewSpinner("Test")
	s.SetWriter(&bytes.Buffer{})

	s.Start()
	if !s.running {
		t.Error("Spinner should be running after Start()")
	}

	s.Stop()
	if s.running {
		t.Error("Spinner should not be running after Stop()")
	}
}

func TestSpinner_MultipleStops(t *testing.T) {
	s := NewSpinner("Test")
	s.SetWriter(&bytes.Buffer{})
	s.Start()

	// Multiple stops should not panic
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinner_StopBeforeStart(t *testing.T) {
	s := NewSpinner("Never started")
	s.SetWriter(&bytes.Buffer{})
	s.Stop()
}

func TestSpinner_StopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Stopping daemon")
	s.SetWriter(buf)
	s.Start()

	s.StopWithMessage("✓ Daemon stopped")

	if !strings.Contains(buf.String(), "✓ Daemon stopped\n") {
		t.Errorf("Spinner should contain final message, got: %q", buf.String())
	}
}

func TestSpinner_FormatMessage(t *testing.T) {
	tests := []struct {
		name    string
		timed   bool
		timeout time.Duration
		want    string
	}{
		{"plain", false, 0, "Waiting"},
		{"remaining", true, 30 * time.Second, "Waiting (30s remaining)"},
		{"elapsed", true, 0, "Waiting (0s elapsed)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpinner("Waiting")
			if tt.timed {
				s.WithTimeout(tt.timeout)
			}
			s.startTime = time.Now().Add(100 * time.Millisecond)
			if got := s.formatMessage(); got != tt.want {
				t.Errorf("formatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpinner_Concurrent(t *testing.T) {
	s := NewSpinner("Concurrent")
	s.SetWriter(&bytes.Buffer{})
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	if s.running {
		t.Error("Spinner should be stopped")
	}
}
