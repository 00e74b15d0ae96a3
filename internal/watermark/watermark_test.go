package watermark

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anrbot/internal/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"plain", "1700000000.5", 1700000000.5},
		{"trailing newline", "1700000000.5\n", 1700000000.5},
		{"only first line counts", "1700000000\ngarbage\n", 1700000000},
		{"surrounding space", "  42.25  \n", 42.25},
		{"integer", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), PostsFile)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Load() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), CommentsFile)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing watermark")
	}

	var userErr *errors.UserError
	if !stderrors.As(err, &userErr) {
		t.Fatalf("expected *errors.UserError, got %T", err)
	}
	if !strings.Contains(userErr.Message, "file missing: "+path) {
		t.Errorf("unexpected message: %q", userErr.Message)
	}
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Error("expected os.ErrNotExist in chain")
	}
}

func TestLoad_Corrupt(t *testing.T) {
	for _, content := range []string{"", "yesterday", "\n1700000000"} {
		path := filepath.Join(t.TempDir(), PostsFile)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		var userErr *errors.UserError
		if !stderrors.As(err, &userErr) || userErr.Title != "❌ Unreadable Watermark" {
			t.Errorf("Load(%q) error = %v, want unreadable watermark", content, err)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), PostsFile)

	for _, ts := range []float64{1700000000.123456, 1700000001} {
		if err := Save(path, ts); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got != ts {
			t.Errorf("round trip = %v, want %v", got, ts)
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the watermark file, found %d entries", len(entries))
	}
}

func TestSeed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	path := filepath.Join(dir, PostsFile)

	wrote, err := Seed(path, 100)
	if err != nil || !wrote {
		t.Fatalf("first Seed = %v, %v; want true, nil", wrote, err)
	}

	wrote, err = Seed(path, 200)
	if err != nil || wrote {
		t.Fatalf("second Seed = %v, %v; want false, nil", wrote, err)
	}

	if got, _ := Load(path); got != 100 {
		t.Errorf("Seed overwrote existing watermark: got %v", got)
	}
}
