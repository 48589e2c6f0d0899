package pipeline

import (
	"errors"
	"fmt"

	"github.com/pengelbrecht/spork/internal/agent"
	"github.com/pengelbrecht/spork/internal/config"
	"github.com/pengelbrecht/spork/internal/feature"
	"github.com/pengelbrecht/spork/internal/git"
	"github.com/pengelbrecht/spork/internal/validate"
	"github.com/pengelbrecht/spork/internal/worktree"
)

// Process exit codes.
const (
	ExitSuccess     = 0
	ExitValidation  = 1 // a prerequisite check failed
	ExitDomainLimit = 2 // number space exhausted or no base branch
	ExitUserInput   = 3 // malformed feature request
	ExitProvision   = 4 // provisioning, configuration, or a tool could not run
)

// ExitError carries a non-zero exit code from the assistant session.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("assistant exited with status %d", e.Code)
}

// SpecError reports a worktree spec that could not be composed from the
// configuration.
type SpecError struct {
	Err error
}

func (e *SpecError) Error() string {
	return "compose worktree spec: " + e.Err.Error()
}

func (e *SpecError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the user.
func (e *SpecError) Suggestion() string {
	return "Check worktree_dir in .spork.yaml"
}

// ExitCode maps an error returned by the runner to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code > 0 {
			return exitErr.Code
		}
		return ExitValidation
	}

	var (
		prereqErr *validate.PrerequisiteError
		limitErr  *feature.DomainLimitError
		inputErr  *feature.UserInputError
		provErr   *worktree.ProvisionError
		cfgErr    *config.Error
		launchErr *agent.LaunchError
		specErr   *SpecError
		gitErr    *git.Error
	)
	switch {
	case errors.As(err, &prereqErr):
		return ExitValidation
	case errors.As(err, &limitErr):
		return ExitDomainLimit
	case errors.As(err, &inputErr):
		return ExitUserInput
	case errors.As(err, &provErr), errors.As(err, &cfgErr), errors.As(err, &launchErr),
		errors.As(err, &specErr), errors.As(err, &gitErr):
		return ExitProvision
	default:
		return ExitValidation
	}
}
