package validate

import (
	"context"

	"github.com/pengelbrecht/spork/internal/feature"
)

// BranchChecker reports whether a branch exists.
type BranchChecker interface {
	BranchExists(ctx context.Context, name string) (bool, error)
}

// BaseBranch resolves the branch new feature branches are cut from: the first
// of Candidates that exists. The result is remembered after the first
// successful call.
type BaseBranch struct {
	Git        BranchChecker
	Candidates []string

	resolved string
}

// Resolve returns the base branch, or a *feature.DomainLimitError when none of
// the candidates exist.
func (b *BaseBranch) Resolve(ctx context.Context) (string, error) {
	if b.resolved != "" {
		return b.resolved, nil
	}
	for _, name := range b.Candidates {
		exists, err := b.Git.BranchExists(ctx, name)
		if err != nil {
			return "", err
		}
		if exists {
			b.resolved = name
			return name, nil
		}
	}
	return "", feature.NoBaseBranchError(b.Candidates)
}
