// Package output renders spork's progress and diagnostics, either as styled
// text for a terminal or as JSON Lines for scripts.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pengelbrecht/spork/internal/envfile"
	"github.com/pengelbrecht/spork/internal/feature"
	"github.com/pengelbrecht/spork/internal/worktree"
)

// Palette shared with the picker.
var (
	successColor = lipgloss.Color("78")  // Green
	warningColor = lipgloss.Color("214") // Orange
	errorColor   = lipgloss.Color("196") // Red
	mutedColor   = lipgloss.Color("241") // Gray
	accentColor  = lipgloss.Color("205") // Pink
)

// Printer writes progress events.
type Printer struct {
	jsonl  bool
	writer io.Writer

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
}

// New creates a printer writing to w. If jsonl is true every event is a
// single JSON object per line; otherwise output is styled for a terminal
// (and plain when w is not one).
func New(w io.Writer, jsonl bool) *Printer {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	return &Printer{
		jsonl:   jsonl,
		writer:  w,
		success: r.NewStyle().Foreground(successColor),
		warning: r.NewStyle().Foreground(warningColor),
		failure: r.NewStyle().Foreground(errorColor).Bold(true),
		muted:   r.NewStyle().Foreground(mutedColor),
		accent:  r.NewStyle().Foreground(accentColor).Bold(true),
	}
}

// JSON reports whether the printer emits JSON Lines.
func (p *Printer) JSON() bool {
	return p.jsonl
}

// Step reports a completed step.
func (p *Printer) Step(msg string) {
	if p.jsonl {
		p.writeJSON(map[string]interface{}{"type": "step", "message": msg})
		return
	}
	fmt.Fprintf(p.writer, "%s %s\n", p.success.Render("✓"), msg)
}

// Info reports progress that is neither a result nor a problem.
func (p *Printer) Info(msg string) {
	if p.jsonl {
		p.writeJSON(map[string]interface{}{"type": "info", "message": msg})
		return
	}
	fmt.Fprintf(p.writer, "%s %s\n", p.muted.Render("→"), msg)
}

// Warn reports a problem that does not stop the run.
func (p *Printer) Warn(msg string) {
	if p.jsonl {
		p.writeJSON(map[string]interface{}{"type": "warning", "message": msg})
		return
	}
	fmt.Fprintf(p.writer, "%s %s\n", p.warning.Render("!"), p.warning.Render(msg))
}

// Error reports the error that ended the run along with its exit code. The
// suggestion of an error implementing Suggestion() string is shown beneath it.
func (p *Printer) Error(err error, exitCode int) {
	suggestion := Suggestion(err)
	if p.jsonl {
		data := map[string]interface{}{
			"type":      "error",
			"error":     err.Error(),
			"exit_code": exitCode,
		}
		if suggestion != "" {
			data["suggestion"] = suggestion
		}
		p.writeJSON(data)
		return
	}
	fmt.Fprintf(p.writer, "%s %s\n", p.failure.Render("Error:"), err.Error())
	if suggestion != "" {
		fmt.Fprintf(p.writer, "  %s\n", p.muted.Render(suggestion))
	}
}

// Spec reports the worktree about to be (or just) provisioned.
func (p *Printer) Spec(spec feature.WorktreeSpec) {
	if p.jsonl {
		p.writeJSON(map[string]interface{}{
			"type":        "spec",
			"branch":      spec.Branch,
			"path":        spec.Path,
			"base_branch": spec.BaseBranch,
			"number":      spec.Number.Number(),
			"name":        spec.Request.SanitizedName(),
		})
		return
	}
	fmt.Fprintf(p.writer, "  Branch: %s\n", p.accent.Render(spec.Branch))
	fmt.Fprintf(p.writer, "  Path:   %s\n", spec.Path)
	fmt.Fprintf(p.writer, "  Base:   %s\n", spec.BaseBranch)
}

// CopyReport reports the outcome of secret file propagation.
func (p *Printer) CopyReport(r envfile.CopyReport) {
	if p.jsonl {
		data := map[string]interface{}{
			"type":             "copy_report",
			"files_discovered": r.Discovered,
			"files_copied":     r.Copied,
			"files_failed":     r.Failed,
			"success":          r.Success(),
			"partial_success":  r.PartialSuccess(),
		}
		if len(r.Errors) > 0 {
			data["errors"] = r.Errors
		}
		p.writeJSON(data)
		return
	}

	switch {
	case r.Discovered == 0:
		p.Info("No secret files to copy")
	case r.Success():
		p.Step(fmt.Sprintf("Copied %d secret %s", r.Copied, plural(r.Copied, "file", "files")))
	default:
		p.Warn(fmt.Sprintf("Copied %d of %d secret files", r.Copied, r.Discovered))
		for _, e := range r.Errors {
			fmt.Fprintf(p.writer, "  %s\n", p.muted.Render(e))
		}
	}
}

// Launch reports the assistant handoff.
func (p *Printer) Launch(command, dir, prompt string) {
	if p.jsonl {
		p.writeJSON(map[string]interface{}{
			"type":    "launch",
			"command": command,
			"dir":     dir,
			"prompt":  prompt,
		})
		return
	}
	fmt.Fprintf(p.writer, "%s %s %s\n", p.accent.Render("Launching"), command, p.muted.Render(fmt.Sprintf("%q", prompt)))
}

// Worktrees lists feature worktrees.
func (p *Printer) Worktrees(worktrees []worktree.Worktree) {
	if p.jsonl {
		for _, wt := range worktrees {
			p.writeJSON(map[string]interface{}{
				"type":   "worktree",
				"branch": wt.Branch,
				"path":   wt.Path,
				"number": wt.Number,
			})
		}
		return
	}
	if len(worktrees) == 0 {
		p.Info("No feature worktrees")
		return
	}
	width := 0
	for _, wt := range worktrees {
		if len(wt.Branch) > width {
			width = len(wt.Branch)
		}
	}
	for _, wt := range worktrees {
		pad := strings.Repeat(" ", width-len(wt.Branch))
		fmt.Fprintf(p.writer, "%s%s  %s\n", p.accent.Render(wt.Branch), pad, p.muted.Render(wt.Path))
	}
}

// Suggestion returns the hint carried by err, or "".
func Suggestion(err error) string {
	var s interface{ Suggestion() string }
	if errors.As(err, &s) {
		return s.Suggestion()
	}
	return ""
}

// writeJSON writes a JSON object as a single line.
func (p *Printer) writeJSON(data map[string]interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(b))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
