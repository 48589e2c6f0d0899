package worktree

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pengelbrecht/spork/internal/git"
)

// Kind classifies a provisioning failure.
type Kind int

const (
	// Unknown covers every failure not otherwise classified, including git
	// not being installed and timeouts.
	Unknown Kind = iota
	// AlreadyExists means the branch or the destination path is taken.
	AlreadyExists
	// PermissionDenied means the destination could not be created.
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case AlreadyExists:
		return "already_exists"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// ProvisionError is returned when a feature worktree could not be created.
type ProvisionError struct {
	Kind   Kind
	Branch string
	Path   string
	Detail string // diagnostic text from git or the filesystem
	Err    error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("failed to create worktree %s for branch %s", e.Path, e.Branch)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the failure kind.
func (e *ProvisionError) Suggestion() string {
	switch e.Kind {
	case AlreadyExists:
		return fmt.Sprintf("Remove %s or delete branch %s, then try again", e.Path, e.Branch)
	case PermissionDenied:
		return "Check write permissions on the worktree directory"
	default:
		if git.IsNotFound(e.Err) {
			return "Install git: https://git-scm.com/downloads"
		}
		if errors.Is(e.Err, git.ErrTimeout) {
			return "git took too long; raise git.worktree_timeout in .spork.yaml"
		}
		return "Run 'git worktree prune' and try again"
	}
}

// classify maps a failed `git worktree add` to a ProvisionError by its
// diagnostic text.
func classify(spec specRef, err error) *ProvisionError {
	detail := err.Error()
	var gitErr *git.Error
	if errors.As(err, &gitErr) && gitErr.Output != "" {
		detail = gitErr.Output
	}

	kind := Unknown
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	case strings.Contains(detail, "already exists"):
		kind = AlreadyExists
	case strings.Contains(strings.ToLower(detail), "permission denied"):
		kind = PermissionDenied
	}

	return &ProvisionError{
		Kind:   kind,
		Branch: spec.branch,
		Path:   spec.path,
		Detail: detail,
		Err:    err,
	}
}

type specRef struct {
	branch string
	path   string
}
