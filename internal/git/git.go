// Package git wraps the git command line for the operations spork needs:
// probing the installation and repository, resolving branches, reading the
// committed tree of a branch, and creating worktrees.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Default timeouts for git commands.
const (
	DefaultTimeout         = 5 * time.Second
	DefaultFetchTimeout    = 30 * time.Second
	DefaultWorktreeTimeout = 10 * time.Second
)

// Client runs git commands against a repository.
type Client struct {
	command         string
	dir             string
	timeout         time.Duration
	fetchTimeout    time.Duration
	worktreeTimeout time.Duration
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCommand sets the git binary. Default is "git".
func WithCommand(command string) Option {
	return func(c *Client) {
		if command != "" {
			c.command = command
		}
	}
}

// WithTimeouts sets the per-command, fetch and worktree-add timeouts.
// Zero values keep the defaults.
func WithTimeouts(command, fetch, worktree time.Duration) Option {
	return func(c *Client) {
		if command > 0 {
			c.timeout = command
		}
		if fetch > 0 {
			c.fetchTimeout = fetch
		}
		if worktree > 0 {
			c.worktreeTimeout = worktree
		}
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client that runs git in dir. An empty dir means the
// process working directory.
func New(dir string, opts ...Option) *Client {
	c := &Client{
		command:         "git",
		dir:             dir,
		timeout:         DefaultTimeout,
		fetchTimeout:    DefaultFetchTimeout,
		worktreeTimeout: DefaultWorktreeTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the output of `git --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.run(ctx, c.timeout, "version", "--version")
}

// IsInsideWorkTree reports whether dir lies inside a git working tree.
// A non-zero exit from git means "no"; only a failure to run git is an error.
func (c *Client) IsInsideWorkTree(ctx context.Context, dir string) (bool, error) {
	out, err := c.run(ctx, c.timeout, "rev-parse", "-C", dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if isExitError(err) {
			return false, nil
		}
		return false, err
	}
	return out == "true", nil
}

// TopLevel returns the absolute path of the repository's top-level directory.
func (c *Client) TopLevel(ctx context.Context) (string, error) {
	return c.run(ctx, c.timeout, "rev-parse", "rev-parse", "--show-toplevel")
}

// BranchExists reports whether name resolves to a revision.
func (c *Client) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, c.timeout, "rev-parse", "rev-parse", "--verify", "--quiet", name)
	if err != nil {
		if isExitError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Fetch fetches from the configured remote.
func (c *Client) Fetch(ctx context.Context) error {
	_, err := c.run(ctx, c.fetchTimeout, "fetch", "fetch")
	return err
}

// ListBranches returns the short names of all local and remote-tracking
// branches (e.g. "main", "origin/007-add-auth").
func (c *Client) ListBranches(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, c.timeout, "list branches", "branch", "-a", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ShowFile returns the content of path as committed on rev.
func (c *Client) ShowFile(ctx context.Context, rev, path string) (string, error) {
	return c.run(ctx, c.timeout, "show", "show", rev+":"+path)
}

// ListTree returns the names of the entries in the tree at rev:dir.
func (c *Client) ListTree(ctx context.Context, rev, dir string) ([]string, error) {
	out, err := c.run(ctx, c.timeout, "ls-tree", "ls-tree", "--name-only", rev+":"+dir)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// IsIgnored reports whether path is excluded by an ignore rule, whether or
// not it is tracked. When ignored, rule describes the matching rule as
// "<source>:<line>:<pattern>". A path whose last matching rule is a negation
// ("!pattern") is not ignored.
func (c *Client) IsIgnored(ctx context.Context, path string) (ignored bool, rule string, err error) {
	out, err := c.run(ctx, c.timeout, "check-ignore", "check-ignore", "-v", "--no-index", path)
	if err != nil {
		var gitErr *Error
		// Exit 1 means no rule matched.
		if errors.As(err, &gitErr) && gitErr.ExitCode() == 1 {
			return false, "", nil
		}
		return false, "", err
	}
	rule, _, _ = strings.Cut(out, "\t")
	// With -v, git also prints the negation that re-included the path.
	if strings.HasPrefix(rulePattern(rule), "!") {
		return false, "", nil
	}
	return true, rule, nil
}

// rulePattern returns the pattern field of a check-ignore -v rule.
func rulePattern(rule string) string {
	parts := strings.SplitN(rule, ":", 3)
	if len(parts) < 3 {
		return rule
	}
	return parts[2]
}

// AddWorktree creates a worktree at path on a new branch started from base.
func (c *Client) AddWorktree(ctx context.Context, path, branch, base string) error {
	_, err := c.run(ctx, c.worktreeTimeout, "worktree add", "worktree", "add", path, "-b", branch, base)
	return err
}

// Worktree is an entry of `git worktree list --porcelain`.
type Worktree struct {
	Path     string
	Head     string
	Branch   string // short name; empty when detached
	Detached bool
	Bare     bool
}

// ListWorktrees returns every worktree registered with the repository,
// including the main one.
func (c *Client) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	out, err := c.run(ctx, c.timeout, "worktree list", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList([]byte(out))
}

// parseWorktreeList parses the output of `git worktree list --porcelain`.
// Format:
//
//	worktree /path/to/worktree
//	HEAD <commit>
//	branch refs/heads/<branch>
//	<blank line>
func parseWorktreeList(output []byte) ([]Worktree, error) {
	var worktrees []Worktree
	var current *Worktree

	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			continue
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "detached":
			current.Detached = true
		case line == "bare":
			current.Bare = true
		case line == "":
			flush()
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}
	return worktrees, nil
}

// run executes git with the given arguments under a timeout and returns the
// trimmed stdout.
func (c *Client) run(ctx context.Context, timeout time.Duration, op string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Dir = c.dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.logger.Debug("git", "args", args, "dir", c.dir, "duration", time.Since(start), "error", err)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return "", &Error{Op: op, Args: args, Output: msg, Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
