// Package envfile copies locally held secret files (.env and friends) from
// the main checkout into a freshly provisioned worktree. These files are
// never committed, so a new worktree would otherwise start without them.
package envfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSecretPrefix is the file name prefix that marks a secret file.
const DefaultSecretPrefix = ".env"

// RootResolver locates the main checkout's top-level directory.
type RootResolver interface {
	TopLevel(ctx context.Context) (string, error)
}

// PreconditionError means propagation could not start at all.
type PreconditionError struct {
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Propagator discovers secret files under the repository root and copies
// them into a worktree, keeping their relative paths.
type Propagator struct {
	Root         RootResolver
	SecretPrefix string   // defaults to DefaultSecretPrefix
	ExcludeDirs  []string // directory names or root-relative paths never descended into
	Logger       *slog.Logger
}

// Discover returns the sorted, slash-separated paths, relative to root, of
// every secret file under root. Symlinks are included when they resolve to
// a regular file. ".git" is always skipped.
func (p *Propagator) Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &PreconditionError{Message: fmt.Sprintf("source root %s does not exist", root), Err: err}
	}
	if !info.IsDir() {
		return nil, &PreconditionError{Message: fmt.Sprintf("source root %s is not a directory", root)}
	}

	prefix := p.prefix()
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped; the root itself was checked above.
			p.logger().Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && p.excluded(rel, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(d.Name(), prefix) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, statErr := os.Stat(path)
			if statErr != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover secret files: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Propagate copies every discovered secret file into dest. A single file
// failing is recorded in the report and never stops the others; only a
// missing destination or an unresolvable source root returns an error.
func (p *Propagator) Propagate(ctx context.Context, dest string) (CopyReport, error) {
	info, err := os.Stat(dest)
	if err != nil {
		return CopyReport{}, &PreconditionError{Message: fmt.Sprintf("worktree path %s does not exist", dest), Err: err}
	}
	if !info.IsDir() {
		return CopyReport{}, &PreconditionError{Message: fmt.Sprintf("worktree path %s is not a directory", dest)}
	}

	root, err := p.Root.TopLevel(ctx)
	if err != nil {
		return CopyReport{}, &PreconditionError{Message: "cannot determine repository root", Err: err}
	}

	files, err := p.Discover(root)
	if err != nil {
		return CopyReport{}, err
	}

	report := CopyReport{Discovered: len(files)}
	for _, rel := range files {
		if err := copyFile(filepath.Join(root, filepath.FromSlash(rel)), filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("failed to copy %s: %v", rel, err))
			p.logger().Warn("secret file not copied", "file", rel, "error", err)
			continue
		}
		report.Copied++
	}
	return report, nil
}

// copyFile copies src to dst, creating dst's parent directories and
// overwriting dst. The source permission bits are kept.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errors.New("not a regular file")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	perm := info.Mode().Perm()
	if err := os.WriteFile(dst, data, perm); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(dst, perm)
}

func (p *Propagator) excluded(rel, name string) bool {
	if name == ".git" {
		return true
	}
	for _, dir := range p.ExcludeDirs {
		if dir == "" {
			continue
		}
		dir = strings.Trim(path.Clean(filepath.ToSlash(dir)), "/")
		if dir == "" || dir == "." {
			continue
		}
		if rel == dir || (!strings.Contains(dir, "/") && name == dir) {
			return true
		}
	}
	return false
}

func (p *Propagator) prefix() string {
	if p.SecretPrefix == "" {
		return DefaultSecretPrefix
	}
	return p.SecretPrefix
}

func (p *Propagator) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
