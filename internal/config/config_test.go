package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvWorktreeDir, EnvBaseBranches, EnvGit, EnvAssistant, EnvNoFetch} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := (&Loader{}).Load()
	require.NoError(t, err)

	assert.Equal(t, ".worktrees", cfg.WorktreeDir)
	assert.Equal(t, []string{"main", "master"}, cfg.BaseBranches)
	assert.True(t, cfg.Fetch)
	assert.Equal(t, ".env", cfg.SecretPrefix)
	assert.Equal(t, ".specify", cfg.Scaffold.Dir)
	assert.Equal(t, []string{"memory/constitution.md"}, cfg.Scaffold.Files)
	assert.Equal(t, []string{"templates", "scripts"}, cfg.Scaffold.Dirs)
	assert.Equal(t, "git", cfg.Git.Command)
	assert.Equal(t, 5*time.Second, cfg.Git.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Git.FetchTimeout)
	assert.Equal(t, 10*time.Second, cfg.Git.WorktreeTimeout)
	assert.Equal(t, "claude", cfg.Assistant.Command)
	assert.Equal(t, "/specify ", cfg.Assistant.PromptPrefix)
	assert.Equal(t, []Layer{{Source: SourceDefault}}, cfg.Layers)
}

func TestLoad_Layering(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	global := writeConfig(t, dir, "global/config.yaml", `
worktree_dir: .wt-global
base_branches: [develop]
git:
  fetch_timeout: 1m
`)
	local := writeConfig(t, dir, "repo/.spork.yaml", `
worktree_dir: .wt-local
fetch: false
`)

	cfg, err := (&Loader{GlobalPath: global, LocalPath: local}).Load()
	require.NoError(t, err)

	assert.Equal(t, ".wt-local", cfg.WorktreeDir, "local overrides global")
	assert.Equal(t, []string{"develop"}, cfg.BaseBranches, "global overrides defaults")
	assert.False(t, cfg.Fetch)
	assert.Equal(t, time.Minute, cfg.Git.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.Git.Timeout, "unset nested keys keep defaults")
	assert.Equal(t, "git", cfg.Git.Command)
	assert.Equal(t, []Layer{
		{Source: SourceDefault},
		{Source: SourceGlobal, Path: global},
		{Source: SourceLocal, Path: local},
	}, cfg.Layers)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	clearEnv(t)
	local := writeConfig(t, t.TempDir(), ".spork.yaml", "worktree_dir: .wt-local\n")
	t.Setenv(EnvWorktreeDir, ".wt-env")
	t.Setenv(EnvBaseBranches, " trunk , main ,")
	t.Setenv(EnvGit, "/opt/git/bin/git")
	t.Setenv(EnvAssistant, "fake-claude")
	t.Setenv(EnvNoFetch, "1")

	cfg, err := (&Loader{LocalPath: local}).Load()
	require.NoError(t, err)

	assert.Equal(t, ".wt-env", cfg.WorktreeDir)
	assert.Equal(t, []string{"trunk", "main"}, cfg.BaseBranches)
	assert.Equal(t, "/opt/git/bin/git", cfg.Git.Command)
	assert.Equal(t, "fake-claude", cfg.Assistant.Command)
	assert.False(t, cfg.Fetch)
	assert.Equal(t, SourceEnv, cfg.Layers[len(cfg.Layers)-1].Source)
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := (&Loader{
		GlobalPath: filepath.Join(dir, "nope.yaml"),
		LocalPath:  filepath.Join(dir, ".spork.yaml"),
	}).Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Layers, 1)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	local := writeConfig(t, t.TempDir(), ".spork.yaml", "")

	cfg, err := (&Loader{LocalPath: local}).Load()
	require.NoError(t, err)
	assert.Equal(t, ".worktrees", cfg.WorktreeDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		source  Source
	}{
		{name: "unknown key", content: "worktree_directory: x\n", source: SourceLocal},
		{name: "unknown nested key", content: "git:\n  binary: git\n", source: SourceLocal},
		{name: "malformed yaml", content: "base_branches: [main\n", source: SourceLocal},
		{name: "bad duration", content: "git:\n  timeout: soon\n", source: SourceLocal},
		{name: "absolute worktree dir", content: "worktree_dir: /tmp/wt\n", source: SourceLocal},
		{name: "worktree dir outside repo", content: "worktree_dir: ../wt\n", source: SourceLocal},
		{name: "worktree dir is repo root", content: "worktree_dir: ./\n", source: SourceLocal},
		{name: "scaffold dir outside repo", content: "scaffold:\n  dir: a/../../b\n", source: SourceLocal},
		{name: "no base branches", content: "base_branches: []\n", source: SourceLocal},
		{name: "zero timeout", content: "git:\n  timeout: 0s\n", source: SourceLocal},
		{name: "empty secret prefix", content: "secret_prefix: \"\"\n", source: SourceLocal},
		{name: "bad no-fetch", env: map[string]string{EnvNoFetch: "maybe"}, source: SourceEnv},
		{name: "empty env branch list", env: map[string]string{EnvBaseBranches: ", ,"}, source: SourceEnv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			loader := &Loader{}
			if tt.content != "" {
				loader.LocalPath = writeConfig(t, t.TempDir(), ".spork.yaml", tt.content)
			}

			_, err := loader.Load()

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.source, cfgErr.Source)
			if tt.source == SourceLocal {
				assert.Equal(t, loader.LocalPath, cfgErr.Path)
			}
			assert.NotEmpty(t, cfgErr.Suggestion())
		})
	}
}

func TestLoad_CleansPaths(t *testing.T) {
	clearEnv(t)
	loader := &Loader{LocalPath: writeConfig(t, t.TempDir(), ".spork.yaml",
		"worktree_dir: ./.worktrees/\nscaffold:\n  dir: ./.specify\n")}

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, ".worktrees", cfg.WorktreeDir)
	assert.Equal(t, ".specify", cfg.Scaffold.Dir)
}

func TestGlobalPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "spork", "config.yaml"), GlobalPath())

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".config", "spork", "config.yaml"), GlobalPath())
}

func TestFindRepoRoot(t *testing.T) {
	t.Run("git directory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0755))

		assert.Equal(t, root, FindRepoRoot(nested))
	})

	t.Run("git file in linked worktree", func(t *testing.T) {
		root := t.TempDir()
		writeConfig(t, root, ".git", "gitdir: /elsewhere\n")

		assert.Equal(t, root, FindRepoRoot(root))
	})
}

func TestNewLoader(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))

	l := NewLoader(root)
	assert.Equal(t, filepath.Join(root, LocalConfigName), l.LocalPath)
	assert.Equal(t, filepath.Join("/xdg", "spork", "config.yaml"), l.GlobalPath)
}
