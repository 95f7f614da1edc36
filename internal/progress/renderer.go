package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// BarRenderer draws a two-line progress display (status + bar) on a TTY,
// or prints timestamped single lines elsewhere.
type BarRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	start     time.Time
	isTTY     bool
	width     int
	lastEvent Event
	lastStage Stage
	lines     int // lines currently on screen, for TTY overwrite
}

// NewBarRenderer creates a renderer that writes to out. Terminal mode and
// width are detected when out is a file.
func NewBarRenderer(out io.Writer) *BarRenderer {
	r := &BarRenderer{out: out, start: time.Now(), width: 80}
	if f, ok := out.(*os.File); ok {
		r.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if r.isTTY {
			if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
				r.width = w
			}
		}
	}
	return r
}

// Handle processes a progress event. It satisfies Callback and is safe
// for concurrent use.
func (r *BarRenderer) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1.0
	}
	r.lastEvent = e

	if r.isTTY {
		r.renderTTY(e)
		return
	}
	// Plain output only prints stage changes and errors, not every line.
	if e.Stage != r.lastStage || e.Error != nil {
		r.renderPlain(e)
	}
	r.lastStage = e.Stage
}

// Finish clears the progress display and prints a final summary.
func (r *BarRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lastEvent
	if r.isTTY && r.lines > 0 {
		r.clearLines()
	}

	switch {
	case e.Error != nil:
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
	case e.Stage == StageComplete && e.OutputFile != "":
		if e.Duration > 0 {
			fmt.Fprintf(r.out, "\n  Podcast saved to %s (%s, %.1f MB)\n", e.OutputFile, formatElapsed(e.Duration), e.SizeMB)
		} else {
			fmt.Fprintf(r.out, "\n  Podcast saved to %s (%.1f MB)\n", e.OutputFile, e.SizeMB)
		}
		if e.Degraded {
			fmt.Fprintln(r.out, "  Warning: audio merge failed, only the first segment was kept")
		}
		fmt.Fprintf(r.out, "  Total: %s\n", formatElapsed(e.Elapsed))
	case e.Stage == StageComplete:
		fmt.Fprintf(r.out, "\n  %s (%s)\n", e.Message, formatElapsed(e.Elapsed))
	}
}

func (r *BarRenderer) renderTTY(e Event) {
	if r.lines > 0 {
		r.clearLines()
	}

	msg := "  " + e.Message
	if e.Total > 1 {
		msg += fmt.Sprintf(" (%d/%d)", e.Done, e.Total)
	}
	bar := renderBar(e.Percent, r.barWidth())
	line2 := fmt.Sprintf("  %s %3d%%  %s", bar, int(e.Percent*100), formatElapsed(e.Elapsed))

	fmt.Fprintf(r.out, "%s\n%s", msg, line2)
	r.lines = 2
}

func (r *BarRenderer) renderPlain(e Event) {
	fmt.Fprintf(r.out, "[%s] %s\n", formatElapsed(e.Elapsed), e.Message)
}

func (r *BarRenderer) clearLines() {
	for i := 0; i < r.lines; i++ {
		if i == 0 {
			fmt.Fprint(r.out, "\r\033[2K")
		} else {
			fmt.Fprint(r.out, "\033[A\033[2K")
		}
	}
	fmt.Fprint(r.out, "\r")
	r.lines = 0
}

// barWidth is the terminal width minus brackets, percent, elapsed and
// padding, clamped to 20-60.
func (r *BarRenderer) barWidth() int {
	w := r.width - 16
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	return w
}

// renderBar draws a [####....] style bar of the given width.
func renderBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
