package feature

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxRequestLength is the maximum length of the raw feature request text, in
// characters.
const MaxRequestLength = 500

// FeatureRequest is the user's raw request paired with its sanitized name.
type FeatureRequest struct {
	text          string
	sanitizedName string
}

// NewFeatureRequest validates the raw text and derives its sanitized name.
// Returns a *UserInputError for empty or oversized text, or for text that
// sanitizes to nothing.
func NewFeatureRequest(text string, maxNameLength int) (FeatureRequest, error) {
	if strings.TrimSpace(text) == "" {
		return FeatureRequest{}, &UserInputError{
			Message: "feature request is required",
			Hint:    `Usage: spork "add user authentication"`,
		}
	}
	if n := utf8.RuneCountInString(text); n > MaxRequestLength {
		return FeatureRequest{}, &UserInputError{
			Message: fmt.Sprintf("feature request is %d characters, maximum is %d", n, MaxRequestLength),
			Hint:    "Summarize the request; the assistant will ask for details",
		}
	}

	name := Sanitize(text, maxNameLength)
	if name == "" {
		return FeatureRequest{}, &UserInputError{
			Message: fmt.Sprintf("feature request %q contains no letters or digits", text),
			Hint:    "Describe the feature using letters or digits so a branch name can be derived",
		}
	}

	return FeatureRequest{text: text, sanitizedName: name}, nil
}

// Text returns the raw request as typed by the user.
func (r FeatureRequest) Text() string { return r.text }

// SanitizedName returns the branch-safe form of the request.
func (r FeatureRequest) SanitizedName() string { return r.sanitizedName }

// WorktreeSpec describes the worktree to provision for a feature.
type WorktreeSpec struct {
	Branch     string // {formatted}-{sanitized}, e.g. 004-add-auth
	Path       string // <repoRoot>/<worktreeDir>/<Branch>
	BaseBranch string
	Number     FeatureNumber
	Request    FeatureRequest
}

// BranchName composes the feature branch name.
func BranchName(number FeatureNumber, request FeatureRequest) string {
	return number.Formatted() + "-" + request.SanitizedName()
}

// NewWorktreeSpec composes the spec for a feature worktree rooted under
// repoRoot/worktreeDir.
func NewWorktreeSpec(repoRoot, worktreeDir, baseBranch string, number FeatureNumber, request FeatureRequest) (WorktreeSpec, error) {
	if number.IsZero() {
		return WorktreeSpec{}, fmt.Errorf("feature number is required")
	}
	if request.SanitizedName() == "" {
		return WorktreeSpec{}, fmt.Errorf("feature request is required")
	}
	if baseBranch == "" {
		return WorktreeSpec{}, fmt.Errorf("base branch is required")
	}
	if !filepath.IsAbs(repoRoot) {
		return WorktreeSpec{}, fmt.Errorf("repository root %q is not absolute", repoRoot)
	}

	branch := BranchName(number, request)
	return WorktreeSpec{
		Branch:     branch,
		Path:       filepath.Join(repoRoot, worktreeDir, branch),
		BaseBranch: baseBranch,
		Number:     number,
		Request:    request,
	}, nil
}
