// Package report prints a one-shot run to the terminal: each field with its
// validation state, then the outcome of the generate attempt.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"juliaform/controller"
	"juliaform/form"
)

// Run is everything a one-shot invocation produced.
type Run struct {
	Fields     []form.Field
	Result     controller.GenerateResult
	Err        error
	OutputFile string // where the markup was written, if anywhere
}

// Write prints r to w.
func Write(w io.Writer, r Run) {
	fmt.Fprintln(w)
	color.New(color.FgCyan, color.Bold).Fprintln(w, "━━━ Julia set parameters ━━━")
	fmt.Fprintln(w)

	for _, fd := range r.Fields {
		writeField(w, fd)
	}

	fmt.Fprintln(w)
	writeOutcome(w, r)
	fmt.Fprintln(w)
}

func writeField(w io.Writer, fd form.Field) {
	icon, clr := "✓", color.New(color.FgGreen)
	if fd.Invalid {
		icon, clr = "✗", color.New(color.FgRed)
	}
	clr.Fprintf(w, "  %s %-20s", icon, fd.Name)
	fmt.Fprintf(w, " %q", fd.Value)
	if fd.Max != "" {
		color.New(color.FgHiBlack).Fprintf(w, " (max %s)", fd.Max)
	}
	fmt.Fprintln(w)
	if fd.Invalid && fd.Feedback != "" {
		color.New(color.FgRed).Fprintf(w, "    └─ %s\n", fd.Feedback)
	}
}

func writeOutcome(w io.Writer, r Run) {
	dim := color.New(color.FgHiBlack)
	switch r.Result.Outcome {
	case controller.Rendered:
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprint(w, "━━━ Image rendered ")
		dim.Fprintf(w, "(request %s in %v)", r.Result.RequestID, r.Result.Duration.Round(time.Millisecond))
		ok.Fprintln(w, " ━━━")
		if r.OutputFile != "" {
			fmt.Fprintf(w, "  markup written to %s\n", r.OutputFile)
		}
	case controller.Unchanged:
		color.New(color.FgYellow).Fprintln(w, "━━━ Parameters unchanged, nothing requested ━━━")
	case controller.Invalid:
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprint(w, "━━━ Parameters invalid ")
		dim.Fprintf(w, "(%d of %d fields rejected)", countInvalid(r.Fields), len(r.Fields))
		bad.Fprintln(w, " ━━━")
	default:
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprintf(w, "━━━ Request %s ━━━\n", r.Result.Outcome)
	}
	if r.Err != nil {
		color.New(color.FgRed).Fprintf(w, "  └─ %s\n", r.Err.Error())
	}
}

func countInvalid(fields []form.Field) int {
	n := 0
	for _, fd := range fields {
		if fd.Invalid {
			n++
		}
	}
	return n
}
