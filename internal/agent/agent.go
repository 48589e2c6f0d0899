// Package agent wraps the interactive coding assistant that spork hands a
// freshly provisioned worktree to.
package agent

import (
	"context"
	"io"
	"time"
)

// Agent defines the interface for interactive coding assistants.
type Agent interface {
	// Name returns the agent's display name.
	Name() string

	// Available checks if the agent's CLI is installed and on PATH.
	Available() bool

	// Version runs the agent's version command under a timeout.
	Version(ctx context.Context) (string, error)

	// Launch starts an interactive session in dir, seeded with prompt, and
	// blocks until it exits. The session's exit code is returned unchanged;
	// an error means the session could not be started at all.
	Launch(ctx context.Context, dir, prompt string, opts LaunchOpts) (int, error)
}

// LaunchOpts configures an interactive session.
type LaunchOpts struct {
	// Stdin, Stdout and Stderr default to the process's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultVersionTimeout bounds the version probe.
const DefaultVersionTimeout = 5 * time.Second
