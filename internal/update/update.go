// Package update checks GitHub releases for newer spork builds and replaces
// the running binary.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"

	"github.com/pengelbrecht/spork/internal/config"
)

const (
	repoOwner     = "pengelbrecht"
	repoName      = "spork"
	brewFormula   = "pengelbrecht/tap/spork"
	checkInterval = 24 * time.Hour
	checkTimeout  = 3 * time.Second
)

// ErrDevBuild is returned when asked to update a build without a release version.
var ErrDevBuild = errors.New("cannot update dev builds")

// updateCache stores the last update check result.
type updateCache struct {
	LastCheck       time.Time `json:"last_check"`
	LatestVersion   string    `json:"latest_version,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
}

// cachePath keeps the cache next to the global config file.
func cachePath() string {
	global := config.GlobalPath()
	if global == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(global), "update-cache.json")
}

func loadCache() *updateCache {
	path := cachePath()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cache updateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	return &cache
}

func saveCache(cache *updateCache) {
	path := cachePath()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	data, err := json.Marshal(cache)
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0644)
}

// InstallMethod represents how spork was installed.
type InstallMethod int

const (
	// InstallUnknown means we couldn't determine the install method.
	InstallUnknown InstallMethod = iota
	// InstallHomebrew means spork was installed via Homebrew.
	InstallHomebrew
	// InstallScript means spork was installed via shell script or go install.
	InstallScript
)

func (m InstallMethod) String() string {
	switch m {
	case InstallHomebrew:
		return "homebrew"
	case InstallScript:
		return "script"
	default:
		return "unknown"
	}
}

// DetectInstallMethod determines how spork was installed by examining the binary path.
func DetectInstallMethod() InstallMethod {
	exe, err := os.Executable()
	if err != nil {
		return InstallUnknown
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return InstallUnknown
	}
	return installMethodFor(exe)
}

func installMethodFor(exe string) InstallMethod {
	// Cellar covers ARM and Intel macOS as well as linuxbrew.
	if strings.Contains(exe, "/Cellar/") ||
		strings.HasPrefix(exe, "/opt/homebrew/") ||
		strings.HasPrefix(exe, "/usr/local/Homebrew/") ||
		strings.Contains(exe, "linuxbrew") {
		return InstallHomebrew
	}
	return InstallScript
}

// Release represents information about a release.
type Release struct {
	Version    string
	ReleaseURL string
}

func isDevBuild(version string) bool {
	v := strings.TrimPrefix(version, "v")
	return v == "" || v == "dev"
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}
	return updater, nil
}

// CheckForUpdate reports the latest release and whether it is newer than
// currentVersion. Dev builds never have updates.
func CheckForUpdate(ctx context.Context, currentVersion string) (*Release, bool, error) {
	if isDevBuild(currentVersion) {
		return nil, false, nil
	}

	updater, err := newUpdater()
	if err != nil {
		return nil, false, err
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, false, fmt.Errorf("failed to detect latest version: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	release := &Release{Version: latest.Version(), ReleaseURL: latest.URL}
	return release, isNewerVersion(latest.Version(), currentVersion), nil
}

// Update downloads and installs the latest release over the running binary.
// Homebrew installs must be upgraded through brew instead.
func Update(ctx context.Context, currentVersion string) (*Release, error) {
	if DetectInstallMethod() == InstallHomebrew {
		return nil, fmt.Errorf("spork was installed via Homebrew. Please run: brew upgrade %s", brewFormula)
	}
	if isDevBuild(currentVersion) {
		return nil, ErrDevBuild
	}

	updater, err := newUpdater()
	if err != nil {
		return nil, err
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, fmt.Errorf("failed to detect latest version: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	if !isNewerVersion(latest.Version(), currentVersion) {
		return nil, fmt.Errorf("already at latest version (%s)", currentVersion)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("failed to update: %w", err)
	}
	return &Release{Version: latest.Version(), ReleaseURL: latest.URL}, nil
}

// UpdateInstructions returns instructions for updating based on install method.
func UpdateInstructions(method InstallMethod) string {
	switch method {
	case InstallHomebrew:
		return "Run: brew upgrade " + brewFormula
	case InstallScript:
		if runtime.GOOS == "windows" {
			return "Run: spork upgrade\nOr reinstall: irm https://raw.githubusercontent.com/pengelbrecht/spork/main/scripts/install.ps1 | iex"
		}
		return "Run: spork upgrade\nOr reinstall: curl -fsSL https://raw.githubusercontent.com/pengelbrecht/spork/main/scripts/install.sh | sh"
	default:
		return "Run: spork upgrade"
	}
}

// CheckPeriodically checks for updates at most once per day and returns a
// one-line notice when one is available. Network failures are silent.
func CheckPeriodically(ctx context.Context, currentVersion string) string {
	if isDevBuild(currentVersion) {
		return ""
	}

	if cache := loadCache(); cache != nil && time.Since(cache.LastCheck) < checkInterval {
		// The user may have upgraded since the cache was written.
		if cache.UpdateAvailable && isNewerVersion(cache.LatestVersion, currentVersion) {
			return formatUpdateNotice(currentVersion, cache.LatestVersion, DetectInstallMethod())
		}
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	release, hasUpdate, err := CheckForUpdate(ctx, currentVersion)

	newCache := &updateCache{
		LastCheck:       time.Now(),
		UpdateAvailable: hasUpdate && err == nil,
	}
	if release != nil {
		newCache.LatestVersion = release.Version
	}
	saveCache(newCache)

	if err != nil || !hasUpdate {
		return ""
	}
	return formatUpdateNotice(currentVersion, release.Version, DetectInstallMethod())
}

// isNewerVersion reports whether a is a strictly newer semantic version
// than b. Unparseable versions are never newer.
func isNewerVersion(a, b string) bool {
	va, err := semver.NewVersion(a)
	if err != nil {
		return false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return false
	}
	return va.GreaterThan(vb)
}

func formatUpdateNotice(current, latest string, method InstallMethod) string {
	cmd := "spork upgrade"
	if method == InstallHomebrew {
		cmd = "brew upgrade " + brewFormula
	}
	return fmt.Sprintf("Update available: %s -> %s (run: %s)", current, latest, cmd)
}
