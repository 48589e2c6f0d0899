package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pengelbrecht/spork/internal/agent"
	"github.com/pengelbrecht/spork/internal/config"
	"github.com/pengelbrecht/spork/internal/envfile"
	"github.com/pengelbrecht/spork/internal/feature"
	"github.com/pengelbrecht/spork/internal/git"
	"github.com/pengelbrecht/spork/internal/output"
	"github.com/pengelbrecht/spork/internal/pipeline"
	"github.com/pengelbrecht/spork/internal/tui"
	"github.com/pengelbrecht/spork/internal/update"
	"github.com/pengelbrecht/spork/internal/worktree"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   `spork [flags] "<feature request>"`,
	Short: "Spin up a numbered feature worktree and hand it to Claude",
	Long: `Spork creates an isolated git worktree for a new feature on a numbered branch
(NNN-feature-name), copies your local .env files into it, and starts Claude
with /specify and your request.

The repository must have the .specify/ scaffold committed on main (or master).`,
	Example: `  spork "add user authentication"
  spork --dry-run add dark mode toggle`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		runner := env.runner()
		runner.DryRun, _ = cmd.Flags().GetBool("dry-run")
		return runner.Run(cmd.Context(), strings.Join(args, " "))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List feature worktrees",
	Args:  userArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		worktrees, err := env.provisioner.List(cmd.Context())
		if err != nil {
			return err
		}
		env.out.Worktrees(worktrees)
		if !env.out.JSON() {
			if notice := update.CheckPeriodically(cmd.Context(), version); notice != "" {
				env.out.Info(notice)
			}
		}
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [branch]",
	Short: "Reopen Claude in an existing feature worktree",
	Long: `Resume starts Claude in the worktree of an existing feature branch. Without a
branch argument an interactive picker lists the feature worktrees.`,
	Args: userArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		wt, err := chooseWorktree(cmd.Context(), env, args)
		if err != nil || wt == nil {
			return err
		}
		return env.runner().Resume(cmd.Context(), wt.Path)
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade spork to the latest version",
	Long:  `Downloads the latest release from GitHub and replaces the running binary.`,
	Args:  userArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := output.New(cmd.OutOrStdout(), jsonFlag(cmd))
		check, _ := cmd.Flags().GetBool("check")

		out.Info(fmt.Sprintf("Current version: %s", version))
		if check {
			release, newer, err := update.CheckForUpdate(cmd.Context(), version)
			if err != nil {
				return err
			}
			if !newer || release == nil {
				out.Step("spork is up to date")
				return nil
			}
			out.Info(fmt.Sprintf("Update available: %s", release.Version))
			out.Info(update.UpdateInstructions(update.DetectInstallMethod()))
			return nil
		}

		release, err := update.Update(cmd.Context(), version)
		if err != nil {
			return err
		}
		out.Step(fmt.Sprintf("Upgraded to %s", release.Version))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Emit JSON Lines instead of styled output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log git commands and pipeline stages to stderr")
	rootCmd.PersistentFlags().Bool("no-fetch", false, "Do not fetch remote branches before numbering")
	rootCmd.Flags().Bool("dry-run", false, "Validate and print the planned worktree without creating it")
	upgradeCmd.Flags().Bool("check", false, "Only check whether a newer version exists")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &feature.UserInputError{Message: err.Error(), Hint: "Run 'spork --help' for usage"}
	})

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(upgradeCmd)
}

// userArgs reports positional argument errors as user input errors.
func userArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &feature.UserInputError{
				Message: err.Error(),
				Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			}
		}
		return nil
	}
}

// environment holds the collaborators shared by the commands.
type environment struct {
	dir         string
	cfg         *config.Config
	logger      *slog.Logger
	git         *git.Client
	provisioner *worktree.Provisioner
	assistant   *agent.ClaudeAgent
	out         *output.Printer
}

func setup(cmd *cobra.Command) (*environment, error) {
	logger := newLogger(cmd)
	slog.SetDefault(logger)

	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if noFetch, _ := cmd.Flags().GetBool("no-fetch"); noFetch {
		cfg.Fetch = false
	}
	for _, layer := range cfg.Layers {
		logger.Debug("config layer", "source", layer.Source, "path", layer.Path)
	}

	gitClient := git.New(dir,
		git.WithCommand(cfg.Git.Command),
		git.WithTimeouts(cfg.Git.Timeout, cfg.Git.FetchTimeout, cfg.Git.WorktreeTimeout),
		git.WithLogger(logger),
	)
	return &environment{
		dir:         dir,
		cfg:         cfg,
		logger:      logger,
		git:         gitClient,
		provisioner: worktree.NewProvisioner(gitClient, logger),
		assistant:   agent.NewClaudeAgent(cfg.Assistant.Command, cfg.Assistant.Timeout),
		out:         output.New(cmd.OutOrStdout(), jsonFlag(cmd)),
	}, nil
}

func (e *environment) runner() *pipeline.Runner {
	return &pipeline.Runner{
		Config:      e.cfg,
		Dir:         e.dir,
		Git:         e.git,
		Provisioner: e.provisioner,
		Propagator: &envfile.Propagator{
			Root:         e.git,
			SecretPrefix: e.cfg.SecretPrefix,
			ExcludeDirs:  []string{e.cfg.WorktreeDir},
			Logger:       e.logger,
		},
		Assistant: e.assistant,
		Out:       e.out,
		Logger:    e.logger,
	}
}

// chooseWorktree resolves the worktree to resume: the named branch, or the
// user's pick when stdin is a terminal. A nil worktree means the user quit.
func chooseWorktree(ctx context.Context, env *environment, args []string) (*worktree.Worktree, error) {
	if len(args) == 1 {
		wt, err := env.provisioner.Find(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if wt == nil {
			return nil, &feature.UserInputError{
				Message: fmt.Sprintf("no feature worktree for branch %q", args[0]),
				Hint:    "Run 'spork list' to see feature worktrees",
			}
		}
		return wt, nil
	}

	worktrees, err := env.provisioner.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(worktrees) == 0 {
		return nil, &feature.UserInputError{
			Message: "no feature worktrees to resume",
			Hint:    `Create one with: spork "<feature request>"`,
		}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || env.out.JSON() {
		return nil, &feature.UserInputError{
			Message: "a branch is required when not running in a terminal",
			Hint:    "Usage: spork resume <branch>",
		}
	}

	wt, err := tui.Pick(worktrees)
	if err != nil {
		return nil, err
	}
	if wt == nil {
		env.out.Info("Nothing resumed")
	}
	return wt, nil
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return pipeline.ExitSuccess
	}

	code := pipeline.ExitCode(err)
	var gitErr *git.Error
	if errors.As(err, &gitErr) {
		slog.Debug("git command failed", "command", gitErr.Command(), "exit", gitErr.ExitCode())
	}
	jsonl := cmd != nil && jsonFlag(cmd)
	w := os.Stderr
	if jsonl {
		w = os.Stdout
	}
	output.New(w, jsonl).Error(err, code)
	return code
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}
