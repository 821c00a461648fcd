package reporter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/rungate/internal/accept"
)

const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorDim   = "\033[2m"
)

// TextReporter writes the human-readable acceptance transcript.
// It implements accept.Observer.
type TextReporter struct {
	w     io.Writer
	color bool
}

// NewTextReporter creates a text reporter.
// If w is nil, defaults to os.Stdout.
// color enables ANSI codes.
func NewTextReporter(w io.Writer, color bool) *TextReporter {
	if w == nil {
		w = os.Stdout
	}
	return &TextReporter{w: w, color: color}
}

// PrintHeader writes the initial banner.
func (r *TextReporter) PrintHeader(runID string) {
	fmt.Fprintf(r.w, "rungate: acceptance for run %s\n\n", runID)
}

// StepStarted writes the step banner before the tool is invoked.
func (r *TextReporter) StepStarted(name string) {
	fmt.Fprintf(r.w, "%s--- %s ---%s\n", r.c(colorCyan), name, r.c(colorReset))
}

// StepFinished writes the step outcome line after the tool returns.
func (r *TextReporter) StepFinished(name string, err error, d time.Duration) {
	if err != nil {
		fmt.Fprintf(r.w, "%s✗ %s failed after %s: %v%s\n\n",
			r.c(colorRed), name, d.Truncate(time.Millisecond), err, r.c(colorReset))
		return
	}
	fmt.Fprintf(r.w, "%s✓ %s (%s)%s\n\n",
		r.c(colorGreen), name, d.Truncate(time.Millisecond), r.c(colorReset))
}

// NewRunID reports the identifier the real replay produced.
func (r *TextReporter) NewRunID(id string) {
	fmt.Fprintf(r.w, "NEW_RUN_ID: %s\n\n", id)
}

// PrintSummary writes the final verdict and per-step timings.
func (r *TextReporter) PrintSummary(rep *accept.Report) {
	for _, s := range rep.Steps {
		mark := r.c(colorGreen) + "✓" + r.c(colorReset)
		if s.Error != "" {
			mark = r.c(colorRed) + "✗" + r.c(colorReset)
		}
		fmt.Fprintf(r.w, "  %s %-16s %s%s%s\n",
			mark, s.Name, r.c(colorDim), s.Duration.Truncate(time.Millisecond), r.c(colorReset))
	}

	fmt.Fprintln(r.w)
	if rep.Passed {
		fmt.Fprintf(r.w, "%sacceptance PASSED%s (%s -> %s in %s)\n",
			r.c(colorGreen), r.c(colorReset),
			rep.RunID, rep.NewRunID, rep.Duration.Truncate(time.Millisecond))
		return
	}
	fmt.Fprintf(r.w, "%sacceptance FAILED%s: %s\n",
		r.c(colorRed), r.c(colorReset), rep.Error)
}

func (r *TextReporter) c(code string) string {
	if r.color {
		return code
	}
	return ""
}
