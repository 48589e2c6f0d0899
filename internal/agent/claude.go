package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// LaunchError reports an assistant session that could not be started.
type LaunchError struct {
	Command string
	Dir     string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s in %s: %v", e.Command, e.Dir, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the user.
func (e *LaunchError) Suggestion() string {
	if errors.Is(e.Err, exec.ErrNotFound) {
		return fmt.Sprintf("Install %s or add it to PATH", e.Command)
	}
	return fmt.Sprintf("The worktree is ready; run %s manually from %s", e.Command, e.Dir)
}

// ClaudeAgent implements the Agent interface for Claude Code CLI.
type ClaudeAgent struct {
	// Command is the path to the claude binary. Defaults to "claude".
	Command string

	// VersionTimeout bounds `claude --version`. Defaults to DefaultVersionTimeout.
	VersionTimeout time.Duration
}

// NewClaudeAgent creates a Claude Code agent running command, or "claude"
// when command is empty.
func NewClaudeAgent(command string, versionTimeout time.Duration) *ClaudeAgent {
	if command == "" {
		command = "claude"
	}
	return &ClaudeAgent{Command: command, VersionTimeout: versionTimeout}
}

// Name returns "claude".
func (a *ClaudeAgent) Name() string {
	return "claude"
}

// Available checks if the claude CLI is installed and accessible.
func (a *ClaudeAgent) Available() bool {
	_, err := exec.LookPath(a.command())
	return err == nil
}

// Version returns the output of `claude --version`.
func (a *ClaudeAgent) Version(ctx context.Context) (string, error) {
	timeout := a.VersionTimeout
	if timeout <= 0 {
		timeout = DefaultVersionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.command(), "--version")
	cmd.WaitDelay = time.Second
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s --version timed out after %v", a.command(), timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s --version: %w: %s", a.command(), err, msg)
		}
		return "", fmt.Errorf("%s --version: %w", a.command(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Launch runs claude interactively in dir with prompt as its first message.
// No timeout is applied: the session lasts as long as the user keeps it open.
func (a *ClaudeAgent) Launch(ctx context.Context, dir, prompt string, opts LaunchOpts) (int, error) {
	var args []string
	if prompt != "" {
		args = append(args, prompt)
	}

	cmd := exec.CommandContext(ctx, a.command(), args...)
	cmd.Dir = dir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, &LaunchError{Command: a.command(), Dir: dir, Err: err}
	}
	return 0, nil
}

// command returns the claude binary path.
func (a *ClaudeAgent) command() string {
	if a.Command != "" {
		return a.Command
	}
	return "claude"
}
