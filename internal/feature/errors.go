package feature

import (
	"fmt"
	"strings"
)

// UserInputError reports feature request text that cannot be turned into a
// feature branch.
type UserInputError struct {
	Message string
	Hint    string
}

func (e *UserInputError) Error() string {
	return e.Message
}

// Suggestion returns an actionable hint for the user.
func (e *UserInputError) Suggestion() string {
	return e.Hint
}

// DomainLimitError reports that no feature branch can be derived from the
// repository as it stands: the number space is exhausted, or no base branch
// exists.
type DomainLimitError struct {
	Message string
	Hint    string
}

func (e *DomainLimitError) Error() string {
	return e.Message
}

// Suggestion returns an actionable hint for the user.
func (e *DomainLimitError) Suggestion() string {
	return e.Hint
}

func numberExhausted(next int) *DomainLimitError {
	return &DomainLimitError{
		Message: fmt.Sprintf("feature number %d exceeds maximum of %d", next, MaxFeatureNumber),
		Hint:    "Delete or rename old feature branches to free up the number space",
	}
}

// NoBaseBranchError builds the error returned when none of the candidate base
// branches exist.
func NoBaseBranchError(candidates []string) *DomainLimitError {
	return &DomainLimitError{
		Message: fmt.Sprintf("none of the base branches %s exist", quoteList(candidates)),
		Hint:    "Create one of them, or set base_branches in .spork.yaml",
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}
