package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/blackwell-systems/gitwatch/internal/watcher"
)

// Output formats understood by Printer.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Printer writes each batch to w, as a block of text or as one JSON object
// per line.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	gitDir string
	now    func() time.Time
}

// NewPrinter creates a Printer. Batches touching gitDir are flagged; pass ""
// to disable the flag.
func NewPrinter(w io.Writer, format, gitDir string) *Printer {
	if format != FormatJSON {
		format = FormatText
	}
	return &Printer{w: w, format: format, gitDir: gitDir, now: time.Now}
}

type batchLine struct {
	Time          time.Time `json:"time"`
	Count         int       `json:"count"`
	GitDirChanged bool      `json:"git_dir_changed"`
	Paths         []string  `json:"paths"`
}

type errorLine struct {
	Time    time.Time `json:"time"`
	Error   string    `json:"error"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
}

func (p *Printer) ShouldKeepLooping() bool { return true }

func (p *Printer) DetectedChange(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gitDirChanged := TouchesDir(paths, p.gitDir)
	now := p.now()

	if p.format == FormatJSON {
		p.encode(batchLine{Time: now, Count: len(paths), GitDirChanged: gitDirChanged, Paths: paths})
		return
	}

	noun := "paths"
	if len(paths) == 1 {
		noun = "path"
	}
	marker := ""
	if gitDirChanged {
		marker = " (git dir changed)"
	}
	fmt.Fprintf(p.w, "[%s] %d %s changed%s\n", now.Format("15:04:05"), len(paths), noun, marker)
	for _, path := range paths {
		fmt.Fprintf(p.w, "  %s\n", path)
	}
}

func (p *Printer) OnError(err *watcher.InitError) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == FormatJSON {
		p.encode(errorLine{Time: p.now(), Error: err.Code.String(), Code: int(err.Code), Message: err.Message})
		return
	}
	fmt.Fprintf(p.w, "watch failed (%s): %s\n", err.Code, err.Message)
}

func (p *Printer) encode(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.w.Write(append(data, '\n'))
}
