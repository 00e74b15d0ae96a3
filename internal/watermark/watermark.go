// Package watermark persists the creation time of the newest item a stream
// has answered, one plain-text file per stream.
package watermark

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"anrbot/internal/errors"
)

// File names inside the state directory.
const (
	PostsFile    = "lastPost"
	CommentsFile = "lastComment"
)

// Load reads the timestamp on the first line of path. A missing file means
// there is no prior run to resume from, which is fatal to the caller.
func Load(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NewWatermarkMissingError(path, err)
		}
		return 0, fmt.Errorf("open watermark: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := ""
	if scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read watermark %s: %w", path, err)
	}

	ts, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, errors.NewWatermarkCorruptError(path, err)
	}
	return ts, nil
}

// Save overwrites path with ts. The write goes through a temp file so a crash
// never leaves a truncated watermark behind.
func Save(path string, ts float64) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(Format(ts) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("save watermark: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Format renders ts the way Load reads it back, without losing precision.
func Format(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}

// Seed writes ts to path unless the file already exists. It reports whether
// it wrote anything.
func Seed(path string, ts float64) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create state directory: %w", err)
	}
	return true, Save(path, ts)
}
