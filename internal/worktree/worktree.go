// Package worktree creates and lists the git worktrees that hold feature
// branches.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pengelbrecht/spork/internal/feature"
	"github.com/pengelbrecht/spork/internal/git"
)

// DefaultWorktreeDir is the default directory, relative to the repository
// root, that holds feature worktrees.
const DefaultWorktreeDir = ".worktrees"

// Git is the subset of the git client the provisioner relies on.
type Git interface {
	AddWorktree(ctx context.Context, path, branch, base string) error
	ListWorktrees(ctx context.Context) ([]git.Worktree, error)
}

// Worktree is a registered worktree checked out on a feature branch.
type Worktree struct {
	Path   string // Absolute path to worktree directory
	Branch string // Branch name (e.g., 004-add-auth)
	Number int    // Feature number parsed from the branch
	Name   string // Branch without the number prefix (e.g., add-auth)
}

// Provisioner creates feature worktrees.
type Provisioner struct {
	git    Git
	logger *slog.Logger
}

// NewProvisioner creates a provisioner backed by g.
func NewProvisioner(g Git, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{git: g, logger: logger}
}

// Provision creates spec.Path checked out on the new branch spec.Branch,
// started from spec.BaseBranch. Every failure is a *ProvisionError. Nothing
// is cleaned up on failure.
func (p *Provisioner) Provision(ctx context.Context, spec feature.WorktreeSpec) error {
	ref := specRef{branch: spec.Branch, path: spec.Path}

	// Check if worktree path already exists
	if _, err := os.Lstat(spec.Path); err == nil {
		return &ProvisionError{
			Kind:   AlreadyExists,
			Branch: spec.Branch,
			Path:   spec.Path,
			Detail: "destination path already exists",
			Err:    fs.ErrExist,
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return classify(ref, err)
	}

	// Ensure worktree directory exists
	container := filepath.Dir(spec.Path)
	if err := os.MkdirAll(container, 0755); err != nil {
		return classify(ref, fmt.Errorf("create %s: %w", container, err))
	}

	p.logger.Debug("adding worktree", "path", spec.Path, "branch", spec.Branch, "base", spec.BaseBranch)
	if err := p.git.AddWorktree(ctx, spec.Path, spec.Branch, spec.BaseBranch); err != nil {
		return classify(ref, err)
	}
	return nil
}

// List returns the registered worktrees whose branch carries a feature
// number, in the order git reports them.
func (p *Provisioner) List(ctx context.Context) ([]Worktree, error) {
	all, err := p.git.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return featureWorktrees(all), nil
}

// Find returns the feature worktree checked out on branch, or nil.
func (p *Provisioner) Find(ctx context.Context, branch string) (*Worktree, error) {
	worktrees, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range worktrees {
		if worktrees[i].Branch == branch {
			return &worktrees[i], nil
		}
	}
	return nil, nil
}

func featureWorktrees(all []git.Worktree) []Worktree {
	var worktrees []Worktree
	for _, wt := range all {
		if wt.Bare || wt.Detached || strings.Contains(wt.Branch, "/") {
			continue
		}
		n, ok := feature.ParseBranchNumber(wt.Branch)
		if !ok {
			continue
		}
		worktrees = append(worktrees, Worktree{
			Path:   wt.Path,
			Branch: wt.Branch,
			Number: n,
			Name:   wt.Branch[4:],
		})
	}
	return worktrees
}
