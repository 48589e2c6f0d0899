package git

import (
	"errors"
	"os/exec"
	"strings"
)

// ErrTimeout is wrapped by errors from git commands that ran out of time.
var ErrTimeout = errors.New("git command timed out")

// Error wraps a failed git command with context.
type Error struct {
	Op     string   // Operation that failed (e.g., "fetch", "worktree add")
	Args   []string // Arguments passed to git
	Output string   // Trimmed stderr, or stdout when stderr was empty
	Err    error    // Underlying error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return e.Op + ": " + e.Output
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Command returns the command line that failed, for diagnostics.
func (e *Error) Command() string {
	return "git " + strings.Join(e.Args, " ")
}

// ExitCode returns the exit status of the failed command, or -1 when git
// never ran to completion (not installed, killed on timeout).
func (e *Error) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// IsNotFound reports whether err came from a git binary that could not be
// started.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
