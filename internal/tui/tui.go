// Package tui renders a compact, live-updating status block to a
// terminal: one line per task, its current step, and elapsed time.
//
// Adapted from the teacher's internal/ui.StatusUI — same ANSI
// cursor-up/clear-line redraw technique and icon/duration helpers —
// generalized from a flat step-row list to task rows that each show
// their current step, since tasks here are sequential pipelines
// rather than independently-scheduled DAG nodes.
package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/taskpanel/taskpanel/internal/engine"
	"github.com/taskpanel/taskpanel/internal/logstore"
	"github.com/taskpanel/taskpanel/internal/model"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

func icon(st model.Status) string {
	switch st {
	case model.Running:
		return colorYellow + "●" + colorReset
	case model.Success:
		return colorGreen + "✓" + colorReset
	case model.Failed:
		return colorRed + "✗" + colorReset
	case model.Killed:
		return colorRed + "⊘" + colorReset
	case model.Skipped:
		return colorDim + "–" + colorReset
	default:
		return colorDim + "○" + colorReset
	}
}

// View renders Controller-style snapshots to w, overwriting the
// previous frame in place the way the teacher's StatusUI does.
type View struct {
	mu       sync.Mutex
	w        io.Writer
	termFile *os.File
	headers  []string
	lines    int
	maxWidth int
}

// New creates a View. w is typically os.Stderr so the status block
// doesn't interleave with anything a task writes to stdout elsewhere.
// headers are the table's derived column titles (tableparser.Table.Headers),
// printed once above the task rows; pass nil to omit the header line.
func New(w io.Writer, names, headers []string) *View {
	v := &View{w: w, headers: headers}
	if f, ok := w.(*os.File); ok {
		v.termFile = f
	}
	for _, n := range names {
		if len(n) > v.maxWidth {
			v.maxWidth = len(n)
		}
	}
	return v
}

// Render draws the header row (once) followed by one line per task: its
// name, an icon for the currently-relevant step, elapsed/duration text,
// and — while a step is RUNNING — a tail of its most recent output.
// Each line is truncated to the terminal width, the way the teacher's
// StatusUI clips long rows rather than letting them wrap.
func (v *View) Render(tasks []engine.TaskView) {
	v.mu.Lock()
	defer v.mu.Unlock()

	width := 80
	if v.termFile != nil {
		width = TermWidth(v.termFile)
	}

	extra := 0
	if len(v.headers) > 0 {
		extra = 1
	}
	if v.lines > 0 {
		fmt.Fprintf(v.w, "\033[%dA", v.lines+extra)
	}
	if len(v.headers) > 0 {
		fmt.Fprintf(v.w, "\033[2K%s%s\n", colorDim, clip(headerLine(v.headers, v.maxWidth), width))
	}

	for _, t := range tasks {
		step := currentStep(t)
		suffix := v.suffix(step.Status, step.StartTime)
		if step.Status == model.Running {
			if tail := lastLine(step.LogPathStdout); tail != "" {
				suffix = fmt.Sprintf("%s %s%s%s", suffix, colorDim, tail, colorReset)
			}
		}
		line := fmt.Sprintf("%s %-*s  %s", icon(step.Status), v.maxWidth, t.Name, suffix)
		fmt.Fprintf(v.w, "\033[2K%s\n", clip(line, width))
	}
	v.lines = len(tasks)
}

// headerLine renders the table's column titles over the name column,
// mirroring the row layout Render itself uses.
func headerLine(headers []string, nameWidth int) string {
	name := headers[0]
	info := ""
	if len(headers) > 1 {
		info = headers[1]
	}
	return fmt.Sprintf("  %-*s  %s", nameWidth, name, info)
}

// lastLine returns the most recent line of a running step's stdout, for
// display alongside its elapsed time — the detail SPEC_FULL.md's §4.1
// promises the status view surfaces from logstore.Tail.
func lastLine(logPath string) string {
	if logPath == "" {
		return ""
	}
	lines, err := logstore.Tail(logPath, 1)
	if err != nil || len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// clip truncates s to at most width runes, counting ANSI escape
// sequences as zero-width so colored text isn't cut mid-sequence.
func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	visible := 0
	inEscape := false
	for i, r := range s {
		if r == '\033' {
			inEscape = true
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		if visible == width {
			return s[:i] + colorReset
		}
		visible++
	}
	return s
}

func currentStep(t engine.TaskView) engine.StepView {
	for _, s := range t.Steps {
		if !s.Status.Terminal() && s.Status != model.Pending {
			return s
		}
	}
	// All terminal, or none started: report the last step's status.
	if len(t.Steps) == 0 {
		return engine.StepView{Status: model.Pending}
	}
	return t.Steps[len(t.Steps)-1]
}

func (v *View) suffix(st model.Status, started time.Time) string {
	switch st {
	case model.Running:
		return colorYellow + FormatDuration(time.Since(started)) + colorReset
	case model.Success:
		return colorDim + "done" + colorReset
	case model.Failed:
		return colorRed + "failed" + colorReset
	case model.Killed:
		return colorRed + "killed" + colorReset
	case model.Skipped:
		return colorDim + "skipped" + colorReset
	default:
		return colorDim + "waiting" + colorReset
	}
}

// FormatDuration returns a human-friendly duration string.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("(%.1fs)", secs)
	}
	m := int(secs) / 60
	s := int(secs) % 60
	return fmt.Sprintf("(%dm %ds)", m, s)
}

// IsTTY reports whether f is connected to a terminal, using go-isatty
// rather than the teacher's os.ModeCharDevice check, since the domain
// stack wires go-isatty in directly for this.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TermWidth returns the terminal width of f, or a sane fallback when
// it isn't a terminal.
func TermWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
