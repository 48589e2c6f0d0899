// Package validate runs the ordered, fail-fast prerequisite checks that gate
// worktree provisioning.
package validate

import (
	"context"
	"fmt"
)

// Outcome is the result of a single check.
type Outcome struct {
	// Check is the machine-readable check name (e.g., "git_installed").
	Check string

	// Passed indicates whether the check passed.
	Passed bool

	// Message describes the failure. Required when Passed is false.
	Message string

	// Suggestion is an optional actionable hint for the user.
	Suggestion string
}

// Pass returns a passing outcome for check.
func Pass(check string) Outcome {
	return Outcome{Check: check, Passed: true}
}

// Fail returns a failing outcome for check.
func Fail(check, message, suggestion string) Outcome {
	return Outcome{Check: check, Message: message, Suggestion: suggestion}
}

// Validate enforces that a failing outcome carries a message.
func (o Outcome) Validate() error {
	if o.Check == "" {
		return fmt.Errorf("outcome has no check name")
	}
	if !o.Passed && o.Message == "" {
		return fmt.Errorf("check %s failed without a message", o.Check)
	}
	return nil
}

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	if o.Passed {
		return fmt.Sprintf("[PASS] %s", o.Check)
	}
	return fmt.Sprintf("[FAIL] %s: %s", o.Check, o.Message)
}

// Check is a single prerequisite.
type Check interface {
	// Name returns the check name reported in its Outcome.
	Name() string

	// Run evaluates the check. A non-nil error means the check could not be
	// evaluated at all and aborts the pipeline unchanged.
	Run(ctx context.Context) (Outcome, error)
}

// PrerequisiteError is returned by Pipeline.Validate for the first failing check.
type PrerequisiteError struct {
	Outcome Outcome
}

func (e *PrerequisiteError) Error() string {
	return e.Outcome.Message
}

// Suggestion returns the failing check's hint, if any.
func (e *PrerequisiteError) Suggestion() string {
	return e.Outcome.Suggestion
}

// Pipeline evaluates checks in order and stops at the first failure.
type Pipeline struct {
	checks []Check

	// OnPass is called after each passing check (optional).
	OnPass func(check Check, outcome Outcome)
}

// New creates a pipeline running checks in the given order.
func New(checks ...Check) *Pipeline {
	return &Pipeline{checks: checks}
}

// Validate runs every check in order. It returns nil when all pass, a
// *PrerequisiteError for the first failing check, or the error a check
// returned when it could not be evaluated. Later checks are never run once
// one has failed.
func (p *Pipeline) Validate(ctx context.Context) error {
	for _, check := range p.checks {
		outcome, err := check.Run(ctx)
		if err != nil {
			return err
		}
		if outcome.Check == "" {
			outcome.Check = check.Name()
		}
		if err := outcome.Validate(); err != nil {
			return err
		}
		if !outcome.Passed {
			return &PrerequisiteError{Outcome: outcome}
		}
		if p.OnPass != nil {
			p.OnPass(check, outcome)
		}
	}
	return nil
}
