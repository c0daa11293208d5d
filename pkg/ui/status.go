package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"followexport/pkg/models"
)

const barWidth = 20

// StatusLine renders pipeline observations on a terminal. Scanning and
// fetching progress rewrite one line in place; phase changes get their own line.
type StatusLine struct {
	mu        sync.Mutex
	out       io.Writer
	quiet     bool
	startTime time.Time
	inLine    bool
}

// NewStatusLine creates a status line writing to out. A quiet status line
// prints only the final outcome.
func NewStatusLine(out io.Writer, quiet bool) *StatusLine {
	if out == nil {
		out = Output
	}
	return &StatusLine{out: out, quiet: quiet, startTime: time.Now()}
}

// OnProgress implements models.Observer
func (s *StatusLine) OnProgress(obs models.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch obs.Phase {
	case models.PhaseDone:
		s.endLine()
		fmt.Fprintf(s.out, "%s %s %s\n", Green("✓"), obs.Message, Dim("in "+formatDuration(time.Since(s.startTime))))
		return
	case models.PhaseFailed:
		s.endLine()
		fmt.Fprintf(s.out, "%s %s\n", Red("✗"), Red(obs.Message))
		return
	}

	if s.quiet {
		return
	}

	switch {
	case obs.Phase == models.PhaseScanning && obs.Tick > 0:
		s.rewrite(fmt.Sprintf("%s %s", Magenta("[SCANNING]"), obs.Message))
	case obs.Phase == models.PhaseEnriching && obs.Index > 0:
		s.rewrite(fmt.Sprintf("%s [%s] %s", Cyan("[FETCHING]"), progressBar(obs.Index, obs.Total), obs.Message))
	default:
		s.endLine()
		fmt.Fprintf(s.out, "%s %s\n", Dim("→"), obs.Message)
	}
}

func (s *StatusLine) rewrite(line string) {
	// Clear line and print
	fmt.Fprintf(s.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
	s.inLine = true
}

func (s *StatusLine) endLine() {
	if s.inLine {
		fmt.Fprintln(s.out)
		s.inLine = false
	}
}

func progressBar(done, total int) string {
	if total <= 0 {
		return strings.Repeat("─", barWidth)
	}
	if done > total {
		done = total
	}
	filled := done * barWidth / total
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// Multi fans observations out to several observers in order
type Multi []models.Observer

func (m Multi) OnProgress(obs models.Observation) {
	for _, o := range m {
		if o != nil {
			o.OnProgress(obs)
		}
	}
}
