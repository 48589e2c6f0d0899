package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName names the global config directory.
	AppName = "spork"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// LocalConfigName is the per-repository config file name.
	LocalConfigName = ".spork.yaml"
)

// Environment variables read by Load.
const (
	EnvWorktreeDir  = "SPORK_WORKTREE_DIR"
	EnvBaseBranches = "SPORK_BASE_BRANCHES"
	EnvGit          = "SPORK_GIT"
	EnvAssistant    = "SPORK_ASSISTANT"
	EnvNoFetch      = "SPORK_NO_FETCH"
)

// Config is the resolved configuration.
type Config struct {
	WorktreeDir  string          `yaml:"worktree_dir"`
	BaseBranches []string        `yaml:"base_branches"`
	Fetch        bool            `yaml:"fetch"`
	SecretPrefix string          `yaml:"secret_prefix"`
	Scaffold     ScaffoldConfig  `yaml:"scaffold"`
	Git          GitConfig       `yaml:"git"`
	Assistant    AssistantConfig `yaml:"assistant"`

	// Layers lists the layers that were applied, lowest precedence first.
	Layers []Layer `yaml:"-"`
}

// ScaffoldConfig describes the committed structure every base branch must
// carry before feature worktrees are cut from it.
type ScaffoldConfig struct {
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files"`
	Dirs  []string `yaml:"dirs"`
}

// GitConfig configures the git collaborator.
type GitConfig struct {
	Command         string        `yaml:"command"`
	Timeout         time.Duration `yaml:"timeout"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	WorktreeTimeout time.Duration `yaml:"worktree_timeout"`
}

// AssistantConfig configures the assistant launched in the new worktree.
type AssistantConfig struct {
	Command      string        `yaml:"command"`
	PromptPrefix string        `yaml:"prompt_prefix"`
	Timeout      time.Duration `yaml:"timeout"` // bounds the version probe only
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorktreeDir:  ".worktrees",
		BaseBranches: []string{"main", "master"},
		Fetch:        true,
		SecretPrefix: ".env",
		Scaffold: ScaffoldConfig{
			Dir:   ".specify",
			Files: []string{"memory/constitution.md"},
			Dirs:  []string{"templates", "scripts"},
		},
		Git: GitConfig{
			Command:         "git",
			Timeout:         5 * time.Second,
			FetchTimeout:    30 * time.Second,
			WorktreeTimeout: 10 * time.Second,
		},
		Assistant: AssistantConfig{
			Command:      "claude",
			PromptPrefix: "/specify ",
			Timeout:      5 * time.Second,
		},
		Layers: []Layer{{Source: SourceDefault}},
	}
}

// Error reports an unreadable or invalid configuration.
type Error struct {
	Source Source
	Path   string // empty for defaults and env
	Err    error
}

func (e *Error) Error() string {
	where := string(e.Source)
	if e.Path != "" {
		where = e.Path
	}
	return fmt.Sprintf("invalid configuration in %s: %v", where, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint.
func (e *Error) Suggestion() string {
	if e.Path != "" {
		return fmt.Sprintf("Fix or remove %s", e.Path)
	}
	if e.Source == SourceEnv {
		return "Check the SPORK_* environment variables"
	}
	return ""
}

// Loader reads the configuration layers.
type Loader struct {
	GlobalPath string // empty skips the global layer
	LocalPath  string // empty skips the local layer
}

// NewLoader locates the global config and the local config of the
// repository containing startDir.
func NewLoader(startDir string) *Loader {
	l := &Loader{GlobalPath: GlobalPath()}
	if root := FindRepoRoot(startDir); root != "" {
		l.LocalPath = filepath.Join(root, LocalConfigName)
	}
	return l
}

// Load resolves the configuration for the repository containing startDir.
func Load(startDir string) (*Config, error) {
	return NewLoader(startDir).Load()
}

// Load applies every layer over the defaults. Each layer is validated as it
// is applied so an *Error names the layer that introduced a bad value.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, layer := range []Layer{
		{Source: SourceGlobal, Path: l.GlobalPath},
		{Source: SourceLocal, Path: l.LocalPath},
	} {
		applied, err := cfg.applyFile(layer.Source, layer.Path)
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}
		if err := cfg.Validate(); err != nil {
			return nil, &Error{Source: layer.Source, Path: layer.Path, Err: err}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, &Error{Source: SourceEnv, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Source: SourceEnv, Err: err}
	}
	return cfg, nil
}

// applyFile decodes path over cfg. Keys absent from the file keep their
// current values. A missing file is skipped and reports false.
func (c *Config) applyFile(source Source, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &Error{Source: source, Path: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return false, &Error{Source: source, Path: path, Err: err}
	}
	c.Layers = append(c.Layers, Layer{Source: source, Path: path})
	return true, nil
}

func (c *Config) applyEnv() error {
	var applied []string

	if v, ok := os.LookupEnv(EnvWorktreeDir); ok && v != "" {
		c.WorktreeDir = v
		applied = append(applied, EnvWorktreeDir)
	}
	if v, ok := os.LookupEnv(EnvBaseBranches); ok && v != "" {
		c.BaseBranches = splitList(v)
		applied = append(applied, EnvBaseBranches)
	}
	if v, ok := os.LookupEnv(EnvGit); ok && v != "" {
		c.Git.Command = v
		applied = append(applied, EnvGit)
	}
	if v, ok := os.LookupEnv(EnvAssistant); ok && v != "" {
		c.Assistant.Command = v
		applied = append(applied, EnvAssistant)
	}
	if v, ok := os.LookupEnv(EnvNoFetch); ok && v != "" {
		noFetch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a boolean", EnvNoFetch, v)
		}
		c.Fetch = !noFetch
		applied = append(applied, EnvNoFetch)
	}

	if len(applied) > 0 {
		c.Layers = append(c.Layers, Layer{Source: SourceEnv, Path: strings.Join(applied, ",")})
	}
	return nil
}

// Validate cleans the path settings and reports the first invalid value.
func (c *Config) Validate() error {
	if err := validateRelative("worktree_dir", c.WorktreeDir); err != nil {
		return err
	}
	c.WorktreeDir = filepath.Clean(c.WorktreeDir)
	if filepath.Clean(c.WorktreeDir) == ".git" {
		return fmt.Errorf("worktree_dir cannot be .git")
	}
	if len(c.BaseBranches) == 0 {
		return fmt.Errorf("base_branches must name at least one branch")
	}
	for _, b := range c.BaseBranches {
		if strings.TrimSpace(b) == "" || strings.ContainsAny(b, " \t") {
			return fmt.Errorf("base_branches contains invalid branch name %q", b)
		}
	}
	if c.SecretPrefix == "" || strings.ContainsAny(c.SecretPrefix, `/\`) {
		return fmt.Errorf("secret_prefix must be a non-empty file name prefix")
	}
	if err := validateRelative("scaffold.dir", c.Scaffold.Dir); err != nil {
		return err
	}
	c.Scaffold.Dir = filepath.ToSlash(filepath.Clean(c.Scaffold.Dir))
	if c.Git.Command == "" {
		return fmt.Errorf("git.command cannot be empty")
	}
	if c.Assistant.Command == "" {
		return fmt.Errorf("assistant.command cannot be empty")
	}
	for name, d := range map[string]time.Duration{
		"git.timeout":          c.Git.Timeout,
		"git.fetch_timeout":    c.Git.FetchTimeout,
		"git.worktree_timeout": c.Git.WorktreeTimeout,
		"assistant.timeout":    c.Assistant.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

func validateRelative(key, p string) error {
	if p == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("%s must be relative to the repository root, got %q", key, p)
	}
	clean := filepath.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must name a directory inside the repository, got %q", key, p)
	}
	return nil
}

// GlobalPath returns the global config file path, or "" when no home
// directory can be determined.
func GlobalPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, GlobalConfigFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, GlobalConfigFile)
}

// FindRepoRoot walks up from startDir to the directory holding .git, which
// is a directory in a main checkout and a file in a linked worktree.
// Returns "" outside a repository.
func FindRepoRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "" // Reached root
		}
		dir = parent
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
