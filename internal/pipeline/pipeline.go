// Package pipeline sequences a spork run: validate the environment, number
// and name the feature branch, provision its worktree, copy secret files into
// it, and hand it to the assistant.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pengelbrecht/spork/internal/agent"
	"github.com/pengelbrecht/spork/internal/config"
	"github.com/pengelbrecht/spork/internal/envfile"
	"github.com/pengelbrecht/spork/internal/feature"
	"github.com/pengelbrecht/spork/internal/validate"
)

// Git is the version-control collaborator.
type Git interface {
	validate.VCS
	validate.BranchChecker
	TopLevel(ctx context.Context) (string, error)
	Fetch(ctx context.Context) error
	ListBranches(ctx context.Context) ([]string, error)
}

// Provisioner creates the worktree described by a spec.
type Provisioner interface {
	Provision(ctx context.Context, spec feature.WorktreeSpec) error
}

// Propagator copies secret files into a worktree.
type Propagator interface {
	Propagate(ctx context.Context, dest string) (envfile.CopyReport, error)
}

// Reporter receives progress events.
type Reporter interface {
	Step(msg string)
	Info(msg string)
	Warn(msg string)
	Spec(spec feature.WorktreeSpec)
	CopyReport(report envfile.CopyReport)
	Launch(command, dir, prompt string)
}

// Runner runs the pipeline against one repository. Runs are sequential; a
// Runner is not safe for concurrent use.
type Runner struct {
	Config      *config.Config
	Dir         string // directory spork was invoked from
	Git         Git
	Provisioner Provisioner
	Propagator  Propagator
	Assistant   agent.Agent
	Out         Reporter
	Logger      *slog.Logger

	// LaunchOpts is passed to the assistant session.
	LaunchOpts agent.LaunchOpts

	// DryRun stops Run after planning.
	DryRun bool
}

var checkLabels = map[string]string{
	validate.CheckGitInstalled:   "Git installed",
	validate.CheckGitRepository:  "Inside a git repository",
	validate.CheckScaffoldOnBase: "Spec scaffold committed on base branch",
}

// Plan validates the environment and works out the worktree for text
// without changing anything on disk. Nothing is validated when text is not a
// usable feature request.
func (r *Runner) Plan(ctx context.Context, text string) (feature.WorktreeSpec, error) {
	cfg := r.Config
	request, err := feature.NewFeatureRequest(text, feature.DefaultMaxNameLength)
	if err != nil {
		return feature.WorktreeSpec{}, err
	}

	base := &validate.BaseBranch{Git: r.Git, Candidates: cfg.BaseBranches}
	checks := validate.Standard(r.Git, r.Dir,
		&validate.Scaffold{
			Git:   r.Git,
			Base:  base,
			Dir:   cfg.Scaffold.Dir,
			Files: cfg.Scaffold.Files,
			Dirs:  cfg.Scaffold.Dirs,
		},
		&validate.AssistantInstalled{Assistant: r.Assistant, Command: cfg.Assistant.Command},
	)
	checks.OnPass = func(check validate.Check, outcome validate.Outcome) {
		r.logger().Debug("check passed", "check", outcome.Check)
		label, ok := checkLabels[outcome.Check]
		switch {
		case outcome.Check == validate.CheckAssistantInstalled:
			label = fmt.Sprintf("Assistant installed (%s)", r.Assistant.Name())
		case !ok:
			label = outcome.Check
		}
		r.Out.Step(label)
	}
	if err := checks.Validate(ctx); err != nil {
		return feature.WorktreeSpec{}, err
	}

	root, err := r.Git.TopLevel(ctx)
	if err != nil {
		return feature.WorktreeSpec{}, fmt.Errorf("resolve repository root: %w", err)
	}

	if cfg.Fetch {
		r.logger().Debug("fetching remote branches")
		if err := r.Git.Fetch(ctx); err != nil {
			r.Out.Warn(fmt.Sprintf("Could not fetch remote branches, numbering from local state: %v", err))
		}
	}

	branches, err := r.Git.ListBranches(ctx)
	if err != nil {
		return feature.WorktreeSpec{}, fmt.Errorf("list branches: %w", err)
	}
	number, err := feature.Allocate(branches)
	if err != nil {
		return feature.WorktreeSpec{}, err
	}
	r.logger().Debug("allocated feature number", "number", number.Formatted(), "branches", len(branches))

	baseBranch, err := base.Resolve(ctx)
	if err != nil {
		return feature.WorktreeSpec{}, err
	}

	spec, err := feature.NewWorktreeSpec(root, cfg.WorktreeDir, baseBranch, number, request)
	if err != nil {
		return feature.WorktreeSpec{}, &SpecError{Err: err}
	}
	return spec, nil
}

// Run plans, provisions, propagates secret files and launches the assistant.
// A non-zero assistant exit status is returned as *ExitError.
func (r *Runner) Run(ctx context.Context, text string) error {
	spec, err := r.Plan(ctx, text)
	if err != nil {
		return err
	}
	r.Out.Spec(spec)
	if r.DryRun {
		r.Out.Info("Dry run, nothing created")
		return nil
	}

	r.logger().Debug("provisioning worktree", "branch", spec.Branch, "path", spec.Path)
	if err := r.Provisioner.Provision(ctx, spec); err != nil {
		return err
	}
	r.Out.Step(fmt.Sprintf("Created worktree %s", spec.Branch))

	// Secret files are a convenience; the worktree is usable without them.
	report, err := r.Propagator.Propagate(ctx, spec.Path)
	if err != nil {
		r.Out.Warn(fmt.Sprintf("Secret files not copied: %v", err))
	} else {
		r.Out.CopyReport(report)
	}

	prompt := r.Config.Assistant.PromptPrefix + text
	return r.launch(ctx, spec.Path, prompt)
}

// Resume hands an existing worktree back to the assistant without a prompt.
func (r *Runner) Resume(ctx context.Context, dir string) error {
	return r.launch(ctx, dir, "")
}

func (r *Runner) launch(ctx context.Context, dir, prompt string) error {
	r.Out.Launch(r.Config.Assistant.Command, dir, prompt)
	code, err := r.Assistant.Launch(ctx, dir, prompt, r.LaunchOpts)
	if err != nil {
		return err
	}
	r.logger().Debug("assistant exited", "assistant", r.Assistant.Name(), "code", code)
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
