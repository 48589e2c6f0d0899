package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClient_Version(t *testing.T) {
	requireGit(t)

	c := New("")
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v == "" {
		t.Error("Version() returned empty string")
	}
}

func TestClient_VersionNotInstalled(t *testing.T) {
	c := New("", WithCommand("nonexistent-git-binary-xyz"))
	_, err := c.Version(context.Background())
	if err == nil {
		t.Fatal("Version() error = nil, want error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	var gitErr *Error
	if !errors.As(err, &gitErr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if gitErr.ExitCode() != -1 {
		t.Errorf("ExitCode() = %d, want -1", gitErr.ExitCode())
	}
}

func TestError_Command(t *testing.T) {
	err := &Error{Op: "worktree add", Args: []string{"worktree", "add", "/repo/.worktrees/001-x", "-b", "001-x", "main"}}
	if got, want := err.Command(), "git worktree add /repo/.worktrees/001-x -b 001-x main"; got != want {
		t.Errorf("Command() = %q, want %q", got, want)
	}
}

func TestClient_IsInsideWorkTree(t *testing.T) {
	requireGit(t)

	t.Run("inside repository", func(t *testing.T) {
		dir := createTempGitRepo(t)
		inside, err := New(dir).IsInsideWorkTree(context.Background(), dir)
		if err != nil {
			t.Fatalf("IsInsideWorkTree() error = %v", err)
		}
		if !inside {
			t.Error("IsInsideWorkTree() = false, want true")
		}
	})

	t.Run("outside repository", func(t *testing.T) {
		dir := t.TempDir()
		inside, err := New(dir).IsInsideWorkTree(context.Background(), dir)
		if err != nil {
			t.Fatalf("IsInsideWorkTree() error = %v", err)
		}
		if inside {
			t.Error("IsInsideWorkTree() = true, want false")
		}
	})
}

func TestClient_TopLevel(t *testing.T) {
	requireGit(t)

	dir := createTempGitRepo(t)
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := New(sub).TopLevel(context.Background())
	if err != nil {
		t.Fatalf("TopLevel() error = %v", err)
	}
	// Compare paths by evaluating symlinks (macOS /var -> /private/var)
	gotPath, _ := filepath.EvalSymlinks(got)
	wantPath, _ := filepath.EvalSymlinks(dir)
	if gotPath != wantPath {
		t.Errorf("TopLevel() = %q, want %q", got, dir)
	}
}

func TestClient_Branches(t *testing.T) {
	requireGit(t)

	dir := createTempGitRepo(t)
	runGit(t, dir, "branch", "007-add-auth")
	c := New(dir)
	ctx := context.Background()

	exists, err := c.BranchExists(ctx, "main")
	if err != nil || !exists {
		t.Errorf("BranchExists(main) = %v, %v, want true, nil", exists, err)
	}
	exists, err = c.BranchExists(ctx, "master")
	if err != nil || exists {
		t.Errorf("BranchExists(master) = %v, %v, want false, nil", exists, err)
	}

	branches, err := c.ListBranches(ctx)
	if err != nil {
		t.Fatalf("ListBranches() error = %v", err)
	}
	want := map[string]bool{"main": false, "007-add-auth": false}
	for _, b := range branches {
		if _, ok := want[b]; ok {
			want[b] = true
		}
	}
	for b, found := range want {
		if !found {
			t.Errorf("ListBranches() = %v, missing %q", branches, b)
		}
	}
}

func TestClient_CommittedTree(t *testing.T) {
	requireGit(t)

	dir := createTempGitRepo(t)
	writeFile(t, filepath.Join(dir, ".specify", "memory", "constitution.md"), "# Constitution")
	writeFile(t, filepath.Join(dir, ".specify", "templates", "spec.md"), "template")
	runGit(t, dir, "add", ".specify")
	runGit(t, dir, "commit", "-m", "add scaffold")
	// Present in the working tree only.
	writeFile(t, filepath.Join(dir, ".specify", "scripts", "run.sh"), "echo")

	c := New(dir)
	ctx := context.Background()

	content, err := c.ShowFile(ctx, "main", ".specify/memory/constitution.md")
	if err != nil {
		t.Fatalf("ShowFile() error = %v", err)
	}
	if content != "# Constitution" {
		t.Errorf("ShowFile() = %q", content)
	}

	entries, err := c.ListTree(ctx, "main", ".specify/templates")
	if err != nil {
		t.Fatalf("ListTree(templates) error = %v", err)
	}
	if len(entries) != 1 || entries[0] != "spec.md" {
		t.Errorf("ListTree(templates) = %v, want [spec.md]", entries)
	}

	if _, err := c.ListTree(ctx, "main", ".specify/scripts"); err == nil {
		t.Error("ListTree(scripts) should fail for an uncommitted directory")
	}
}

func TestClient_IsIgnored(t *testing.T) {
	requireGit(t)

	dir := createTempGitRepo(t)
	c := New(dir)
	ctx := context.Background()

	ignored, _, err := c.IsIgnored(ctx, ".specify/")
	if err != nil {
		t.Fatalf("IsIgnored() error = %v", err)
	}
	if ignored {
		t.Error("IsIgnored() = true before any rule exists")
	}

	writeFile(t, filepath.Join(dir, ".gitignore"), "node_modules/\n.specify/\n")
	writeFile(t, filepath.Join(dir, ".specify", "memory", "constitution.md"), "# Constitution")
	ignored, rule, err := c.IsIgnored(ctx, ".specify/")
	if err != nil {
		t.Fatalf("IsIgnored() error = %v", err)
	}
	if !ignored {
		t.Fatal("IsIgnored() = false, want true")
	}
	if !strings.HasSuffix(rule, ":2:.specify/") {
		t.Errorf("rule = %q, want it to name line 2 of .gitignore", rule)
	}
}

func TestClient_IsIgnored_Rules(t *testing.T) {
	requireGit(t)

	tests := []struct {
		name      string
		gitignore string
		path      string
		want      bool
		wantRule  string
	}{
		{
			name:      "allow-list re-includes scaffold dir",
			gitignore: "*\n!.specify/\n!.specify/**\n!.gitignore\n",
			path:      ".specify/",
			want:      false,
		},
		{
			name:      "allow-list re-includes scaffold file",
			gitignore: "*\n!.specify/\n!.specify/**\n!.gitignore\n",
			path:      ".specify/memory/constitution.md",
			want:      false,
		},
		{
			name:      "subdirectory rule leaves dir alone",
			gitignore: ".specify/memory/\n",
			path:      ".specify/",
			want:      false,
		},
		{
			name:      "subdirectory rule excludes file",
			gitignore: ".specify/memory/\n",
			path:      ".specify/memory/constitution.md",
			want:      true,
			wantRule:  ".gitignore:1:.specify/memory/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := createTempGitRepo(t)
			writeFile(t, filepath.Join(dir, ".gitignore"), tt.gitignore)
			writeFile(t, filepath.Join(dir, ".specify", "memory", "constitution.md"), "# Constitution")

			ignored, rule, err := New(dir).IsIgnored(context.Background(), tt.path)
			if err != nil {
				t.Fatalf("IsIgnored() error = %v", err)
			}
			if ignored != tt.want {
				t.Errorf("IsIgnored(%q) = %v (rule %q), want %v", tt.path, ignored, rule, tt.want)
			}
			if rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", rule, tt.wantRule)
			}
		})
	}
}

func TestRulePattern(t *testing.T) {
	tests := []struct {
		rule string
		want string
	}{
		{".gitignore:3:!.specify/**", "!.specify/**"},
		{".gitignore:1:.specify/", ".specify/"},
		{"/home/me/.config/git/ignore:2:a:b", "a:b"},
		{"odd", "odd"},
	}
	for _, tt := range tests {
		if got := rulePattern(tt.rule); got != tt.want {
			t.Errorf("rulePattern(%q) = %q, want %q", tt.rule, got, tt.want)
		}
	}
}

func TestClient_AddWorktree(t *testing.T) {
	requireGit(t)

	dir := createTempGitRepo(t)
	c := New(dir)
	ctx := context.Background()
	path := filepath.Join(dir, ".worktrees", "001-first")

	if err := c.AddWorktree(ctx, path, "001-first", "main"); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, "initial.txt")); err != nil {
		t.Errorf("worktree should contain initial.txt: %v", err)
	}

	err := c.AddWorktree(ctx, filepath.Join(dir, ".worktrees", "other"), "001-first", "main")
	var gitErr *Error
	if !errors.As(err, &gitErr) {
		t.Fatalf("AddWorktree() duplicate branch error = %v, want *Error", err)
	}
	if gitErr.Output == "" {
		t.Error("Error.Output should carry git's diagnostic")
	}

	worktrees, err := c.ListWorktrees(ctx)
	if err != nil {
		t.Fatalf("ListWorktrees() error = %v", err)
	}
	if len(worktrees) != 2 {
		t.Fatalf("ListWorktrees() returned %d worktrees, want 2", len(worktrees))
	}
	if worktrees[1].Branch != "001-first" {
		t.Errorf("ListWorktrees()[1].Branch = %q, want %q", worktrees[1].Branch, "001-first")
	}
}

func TestClient_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	// Any binary that outlives the timeout exercises the deadline path.
	c := New("", WithCommand("sleep"), WithTimeouts(50*time.Millisecond, 0, 0))
	_, err := c.run(context.Background(), c.timeout, "sleep", "5")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("run() error = %v, want ErrTimeout", err)
	}
}

func TestParseWorktreeList(t *testing.T) {
	output := []byte(`worktree /repo
HEAD 1111111111111111111111111111111111111111
branch refs/heads/main

worktree /repo/.worktrees/004-add-auth
HEAD 2222222222222222222222222222222222222222
branch refs/heads/004-add-auth

worktree /repo/.worktrees/scratch
HEAD 3333333333333333333333333333333333333333
detached
`)

	worktrees, err := parseWorktreeList(output)
	if err != nil {
		t.Fatalf("parseWorktreeList() error = %v", err)
	}
	if len(worktrees) != 3 {
		t.Fatalf("parseWorktreeList() returned %d entries, want 3", len(worktrees))
	}
	if worktrees[1].Path != "/repo/.worktrees/004-add-auth" || worktrees[1].Branch != "004-add-auth" {
		t.Errorf("entry 1 = %+v", worktrees[1])
	}
	if !worktrees[2].Detached || worktrees[2].Branch != "" {
		t.Errorf("entry 2 = %+v, want detached", worktrees[2])
	}
}
