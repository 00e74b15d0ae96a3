package version

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestIsNewerThan(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.0", "1.1.0", true},
		{"1.0.0", "1.1.0", false},
		{"1.1.0", "1.1.0", false},
		{"v2.0.0", "1.9.9", true},
		{"invalid", "1.0.0", false},
		{"1.0.0", "invalid", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := isNewerThan(tt.latest, tt.current); got != tt.want {
			t.Errorf("isNewerThan(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}

func TestLoadSaveCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update_check.json")

	if _, _, ok := loadUpdateCacheFrom(path); ok {
		t.Fatal("expected cache miss for nonexistent file")
	}

	saveUpdateCacheTo(path, "1.2.0", "1.1.0")

	ver, checked, ok := loadUpdateCacheFrom(path)
	if !ok {
		t.Fatal("expected cache hit after save")
	}
	if ver != "1.2.0" || checked != "1.1.0" {
		t.Errorf("got (%q, %q), want (1.2.0, 1.1.0)", ver, checked)
	}
}

func TestCacheExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update_check.json")

	data, _ := json.Marshal(updateCache{
		LatestVersion:  "1.2.0",
		CheckedVersion: "1.1.0",
		Timestamp:      time.Now().Add(-25 * time.Hour),
	})
	os.WriteFile(path, data, 0644)

	if _, _, ok := loadUpdateCacheFrom(path); ok {
		t.Fatal("expected cache miss for stale entry")
	}
}

func TestLoadCacheFrom_Invalid(t *testing.T) {
	if _, _, ok := loadUpdateCacheFrom(""); ok {
		t.Fatal("expected cache miss for empty path")
	}

	path := filepath.Join(t.TempDir(), "update_check.json")
	os.WriteFile(path, []byte("not json"), 0644)
	if _, _, ok := loadUpdateCacheFrom(path); ok {
		t.Fatal("expected cache miss for invalid JSON")
	}

	// Should not panic
	saveUpdateCacheTo("", "1.0.0", "1.0.0")
}

func stubDetect(t *testing.T, version string, found bool, err error) *int {
	t.Helper()
	calls := 0
	orig := detectLatest
	detectLatest = func(context.Context) (string, bool, error) {
		calls++
		return version, found, err
	}
	t.Cleanup(func() { detectLatest = orig })
	return &calls
}

func TestCheckForUpdate(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		found   bool
		err     error
		want    string
	}{
		{"dev build never checks", "dev", "9.9.9", true, nil, ""},
		{"newer release", "1.0.0", "1.1.0", true, nil, "1.1.0"},
		{"up to date", "1.1.0", "1.1.0", true, nil, ""},
		{"no release for platform", "1.0.0", "", false, nil, ""},
		{"offline", "1.0.0", "", false, errors.New("dial tcp: no such host"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			calls := stubDetect(t, tt.latest, tt.found, tt.err)

			if got := checkForUpdate(tt.current); got != tt.want {
				t.Errorf("checkForUpdate(%q) = %q, want %q", tt.current, got, tt.want)
			}
			if tt.current == "dev" && *calls != 0 {
				t.Errorf("dev build queried releases %d times", *calls)
			}
		})
	}
}

func TestCheckForUpdate_UsesCache(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	calls := stubDetect(t, "1.1.0", true, nil)

	if got := checkForUpdate("1.0.0"); got != "1.1.0" {
		t.Fatalf("first check = %q, want 1.1.0", got)
	}
	if got := checkForUpdate("1.0.0"); got != "1.1.0" {
		t.Fatalf("cached check = %q, want 1.1.0", got)
	}
	if *calls != 1 {
		t.Errorf("release source queried %d times, want 1", *calls)
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "anrbot", "update_check.json")); err != nil {
		t.Errorf("cache file not written: %v", err)
	}

	// After upgrading the cache no longer applies.
	if got := checkForUpdate("1.1.0"); got != "" {
		t.Errorf("post-upgrade check = %q, want empty", got)
	}
	if *calls != 2 {
		t.Errorf("release source queried %d times, want 2", *calls)
	}
}

func TestSelfUpdate_DevBuild(t *testing.T) {
	orig := Version
	Version = "dev"
	t.Cleanup(func() { Version = orig })

	if _, err := SelfUpdate(context.Background()); err == nil || !strings.Contains(err.Error(), "dev build") {
		t.Errorf("expected dev build error, got %v", err)
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent("clanky")
	if !strings.Contains(ua, ":anrbot:") || !strings.HasSuffix(ua, "(by /u/clanky)") {
		t.Errorf("UserAgent() = %q", ua)
	}
}

func TestGetVersionString(t *testing.T) {
	if !strings.HasPrefix(GetVersionString(), "anrbot ") {
		t.Errorf("GetVersionString() = %q", GetVersionString())
	}
}
