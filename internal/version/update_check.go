package version

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	semver "github.com/Masterminds/semver/v3"
	selfupdate "github.com/creativeprojects/go-selfupdate"
)

const (
	updateCheckTTL  = 24 * time.Hour
	updateCacheFile = "update_check.json"

	// Slug is the GitHub repository releases are published to.
	Slug = "carlsondc/anrbot"
)

// UpdateCheckResult holds the outcome of a background update check.
type UpdateCheckResult struct {
	NewVersion string // empty means no update available (or check skipped/failed)
}

type updateCache struct {
	LatestVersion  string    `json:"latest_version"`
	CheckedVersion string    `json:"checked_version"` // version that was running when we last checked
	Timestamp      time.Time `json:"timestamp"`
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create update source: %w", err)
	}
	return selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
}

// detectLatest returns the newest published version. Tests replace it.
var detectLatest = func(ctx context.Context) (string, bool, error) {
	updater, err := newUpdater()
	if err != nil {
		return "", false, err
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(Slug))
	if err != nil || !found {
		return "", found, err
	}
	return latest.Version(), true, nil
}

// StartUpdateCheck launches a background goroutine that checks for updates.
// Returns a channel that will receive exactly one result.
func StartUpdateCheck() <-chan UpdateCheckResult {
	ch := make(chan UpdateCheckResult, 1)
	go func() {
		defer close(ch)
		ch <- UpdateCheckResult{NewVersion: checkForUpdate(GetShortVersion())}
	}()
	return ch
}

func checkForUpdate(current string) string {
	if current == "dev" {
		return ""
	}

	// A cache written by an older binary says nothing about this one.
	if cached, checkedVer, ok := loadUpdateCache(); ok && checkedVer == current {
		if cached != "" && isNewerThan(cached, current) {
			return cached
		}
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	latest, found, err := detectLatest(ctx)
	if err != nil || !found {
		// Remember the miss so offline hosts don't query on every run
		saveUpdateCache(current, current)
		return ""
	}

	saveUpdateCache(latest, current)
	if !isNewerThan(latest, current) {
		return ""
	}
	return latest
}

// SelfUpdate replaces the running binary with the latest release. It returns
// the version now installed, which equals current when nothing changed.
func SelfUpdate(ctx context.Context) (string, error) {
	current := GetShortVersion()
	if current == "dev" {
		return "", fmt.Errorf("cannot self-update a dev build; install a released version first")
	}

	updater, err := newUpdater()
	if err != nil {
		return "", err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(Slug))
	if err != nil {
		return "", fmt.Errorf("update check failed: %w", err)
	}
	if !found {
		return "", fmt.Errorf("no release found for your OS/architecture")
	}
	if latest.LessOrEqual(current) {
		return current, nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return "", fmt.Errorf("could not locate executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return "", fmt.Errorf("update failed: %w", err)
	}
	saveUpdateCache(latest.Version(), latest.Version())
	return latest.Version(), nil
}

func isNewerThan(latest, current string) bool {
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return lv.GreaterThan(cv)
}

func updateCachePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "anrbot", updateCacheFile)
}

func loadUpdateCache() (string, string, bool) {
	return loadUpdateCacheFrom(updateCachePath())
}

func saveUpdateCache(latestVersion, checkedVersion string) {
	saveUpdateCacheTo(updateCachePath(), latestVersion, checkedVersion)
}

func loadUpdateCacheFrom(path string) (string, string, bool) {
	if path == "" {
		return "", "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", false
	}

	var cache updateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return "", "", false
	}
	if time.Since(cache.Timestamp) > updateCheckTTL {
		return "", "", false
	}
	return cache.LatestVersion, cache.CheckedVersion, true
}

func saveUpdateCacheTo(path string, latestVersion, checkedVersion string) {
	if path == "" {
		return
	}

	data, err := json.Marshal(updateCache{
		LatestVersion:  latestVersion,
		CheckedVersion: checkedVersion,
		Timestamp:      time.Now(),
	})
	if err != nil {
		return
	}

	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, data, 0644)
}
