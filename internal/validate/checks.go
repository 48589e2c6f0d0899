package validate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"

	"github.com/pengelbrecht/spork/internal/git"
)

// Check names, in the order Standard runs them.
const (
	CheckGitInstalled       = "git_installed"
	CheckGitRepository      = "git_repository"
	CheckScaffoldOnBase     = "scaffold_on_base"
	CheckAssistantInstalled = "assistant_installed"
)

// VersionProber is a tool that can report its own version.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// VCS is the subset of the git client the checks rely on.
type VCS interface {
	VersionProber
	IsInsideWorkTree(ctx context.Context, dir string) (bool, error)
	IsIgnored(ctx context.Context, path string) (bool, string, error)
	ShowFile(ctx context.Context, rev, path string) (string, error)
	ListTree(ctx context.Context, rev, dir string) ([]string, error)
}

// BaseResolver yields the base branch the scaffold must be committed on.
type BaseResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// GitInstalled checks that git can be run.
type GitInstalled struct {
	Git VersionProber
}

func (c *GitInstalled) Name() string { return CheckGitInstalled }

func (c *GitInstalled) Run(ctx context.Context) (Outcome, error) {
	if _, err := c.Git.Version(ctx); err != nil {
		if git.IsNotFound(err) {
			return Fail(c.Name(), "git is not installed or not in PATH",
				"Install git: https://git-scm.com/downloads"), nil
		}
		return Fail(c.Name(), fmt.Sprintf("git is not working: %v", err),
			"Check that `git --version` runs from this shell"), nil
	}
	return Pass(c.Name()), nil
}

// Repository checks that Dir is inside a git working tree.
type Repository struct {
	Git VCS
	Dir string
}

func (c *Repository) Name() string { return CheckGitRepository }

func (c *Repository) Run(ctx context.Context) (Outcome, error) {
	inside, err := c.Git.IsInsideWorkTree(ctx, c.Dir)
	if err != nil {
		return Fail(c.Name(), fmt.Sprintf("could not inspect %s: %v", c.Dir, err),
			"Check that git works in this directory"), nil
	}
	if !inside {
		return Fail(c.Name(), "not in a git repository",
			"Run 'git init' or navigate to an existing repository"), nil
	}
	return Pass(c.Name()), nil
}

// Scaffold checks that the spec scaffold is committed on the base branch:
// no part of the scaffold is ignored, every file in Files exists and every
// directory in Dirs is non-empty in the base branch's committed tree. The
// working tree is never consulted, so an uncommitted scaffold fails.
type Scaffold struct {
	Git   VCS
	Base  BaseResolver
	Dir   string   // scaffold directory relative to the repository root, e.g. ".specify"
	Files []string // required files relative to Dir
	Dirs  []string // required non-empty directories relative to Dir
}

func (c *Scaffold) Name() string { return CheckScaffoldOnBase }

func (c *Scaffold) Run(ctx context.Context) (Outcome, error) {
	base, err := c.Base.Resolve(ctx)
	if err != nil {
		return Outcome{}, err
	}

	dirSlash := c.Dir + "/"
	for _, p := range c.ignoreCandidates() {
		ignored, rule, err := c.Git.IsIgnored(ctx, p)
		if err != nil {
			return Fail(c.Name(), fmt.Sprintf("could not check ignore rules for %s: %v", p, err),
				"Ensure git is working properly"), nil
		}
		if ignored {
			msg := fmt.Sprintf("%s is excluded by an ignore rule", p)
			if rule != "" {
				msg = fmt.Sprintf("%s is excluded by ignore rule %s", p, rule)
			}
			return Fail(c.Name(), msg,
				fmt.Sprintf("Remove the rule so %s can be committed to %s", dirSlash, base)), nil
		}
	}

	for _, file := range c.Files {
		p := path.Join(c.Dir, file)
		if _, err := c.Git.ShowFile(ctx, base, p); err != nil {
			if isMissing(err) {
				return Fail(c.Name(), fmt.Sprintf("scaffold not found on %s branch (%s missing)", base, p),
					fmt.Sprintf("Commit %s to %s before creating feature worktrees", dirSlash, base)), nil
			}
			return Fail(c.Name(), fmt.Sprintf("could not verify scaffold on %s branch: %v", base, err),
				"Ensure git is working properly"), nil
		}
	}

	for _, dir := range c.Dirs {
		p := path.Join(c.Dir, dir)
		entries, err := c.Git.ListTree(ctx, base, p)
		if err != nil && !isMissing(err) {
			return Fail(c.Name(), fmt.Sprintf("could not verify scaffold structure on %s branch: %v", base, err),
				"Ensure git is working properly"), nil
		}
		if err != nil || len(entries) == 0 {
			return Fail(c.Name(), fmt.Sprintf("scaffold incomplete on %s branch (%s missing)", base, p),
				fmt.Sprintf("Run 'specify init .' and commit it to %s", base)), nil
		}
	}

	return Pass(c.Name()), nil
}

// ignoreCandidates lists the scaffold directory and every required path in
// it. A rule can exclude part of the scaffold without matching the directory.
func (c *Scaffold) ignoreCandidates() []string {
	paths := []string{c.Dir + "/"}
	for _, file := range c.Files {
		paths = append(paths, path.Join(c.Dir, file))
	}
	for _, dir := range c.Dirs {
		paths = append(paths, path.Join(c.Dir, dir)+"/")
	}
	return paths
}

// isMissing reports whether err is git refusing a path, as opposed to git
// not running at all.
func isMissing(err error) bool {
	var gitErr *git.Error
	return errors.As(err, &gitErr) && gitErr.ExitCode() > 0
}

// Assistant is an assistant CLI that can be looked up and probed.
type Assistant interface {
	VersionProber
	Available() bool
}

// AssistantInstalled checks that the assistant CLI can be run.
type AssistantInstalled struct {
	Assistant Assistant
	Command   string // shown in diagnostics
}

func (c *AssistantInstalled) Name() string { return CheckAssistantInstalled }

func (c *AssistantInstalled) Run(ctx context.Context) (Outcome, error) {
	if !c.Assistant.Available() {
		return Fail(c.Name(), fmt.Sprintf("%s not found in PATH", c.Command),
			fmt.Sprintf("Install %s or add it to PATH", c.Command)), nil
	}
	if _, err := c.Assistant.Version(ctx); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Fail(c.Name(), fmt.Sprintf("%s not found in PATH", c.Command),
				fmt.Sprintf("Install %s or add it to PATH", c.Command)), nil
		}
		return Fail(c.Name(), fmt.Sprintf("%s is not working: %v", c.Command, err),
			fmt.Sprintf("Check that `%s --version` runs from this shell", c.Command)), nil
	}
	return Pass(c.Name()), nil
}

// Standard builds the pipeline in its fixed order: git installed, inside a
// repository, scaffold committed on the base branch, assistant installed.
func Standard(vcs VCS, dir string, scaffold *Scaffold, assistant *AssistantInstalled) *Pipeline {
	return New(
		&GitInstalled{Git: vcs},
		&Repository{Git: vcs, Dir: dir},
		scaffold,
		assistant,
	)
}
