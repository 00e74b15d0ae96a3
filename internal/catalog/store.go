package catalog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"anrbot/internal/httputil"
	"anrbot/internal/logger"
)

// SyncInterval is how old the local dataset may get before a refresh.
const SyncInterval = 24 * time.Hour

// DefaultURL is the NetrunnerDB public card endpoint.
const DefaultURL = "https://netrunnerdb.com/api/2.0/public/cards"

// Store keeps a local copy of the remote dataset on disk.
type Store struct {
	Path   string
	URL    string
	MaxAge time.Duration
	Client *httputil.RetryableClient
	Now    func() time.Time
}

// NewStore returns a store with the default refresh interval and HTTP client.
func NewStore(path, url string) *Store {
	return &Store{
		Path:   path,
		URL:    url,
		MaxAge: SyncInterval,
		Client: httputil.NewDefaultClient(),
		Now:    time.Now,
	}
}

// Age reports how long ago the local copy was written. A missing copy is
// reported as infinitely old.
func (s *Store) Age() (time.Duration, bool) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return 0, false
	}
	return s.now().Sub(info.ModTime()), true
}

// Stale reports whether the local copy is missing or at least MaxAge old.
func (s *Store) Stale() bool {
	age, ok := s.Age()
	return !ok || age >= s.maxAge()
}

// RefreshIfStale downloads a fresh copy when the local one is stale. It
// returns true when a new copy was written. Download failures are logged and
// swallowed so a transient outage leaves the previous copy in place.
func (s *Store) RefreshIfStale(ctx context.Context) bool {
	if !s.Stale() {
		age, _ := s.Age()
		logger.Catalog("local copy is fresh (age %v)", age.Round(time.Second))
		return false
	}

	logger.Info("Refreshing cards from %s", s.URL)
	if err := s.Fetch(ctx); err != nil {
		logger.Warn("Catalog refresh failed, using local copy: %v", err)
		return false
	}
	return true
}

// Fetch downloads the dataset and atomically replaces the local copy.
func (s *Store) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".cards-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.client().Download(ctx, req, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	// Validate before replacing a good copy with a bad one.
	if _, err := s.loadFrom(tmp.Name()); err != nil {
		return fmt.Errorf("downloaded catalog rejected: %w", err)
	}

	return os.Rename(tmp.Name(), s.Path)
}

// Load parses the local copy.
func (s *Store) Load() (*Catalog, error) {
	return s.loadFrom(s.Path)
}

func (s *Store) loadFrom(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) maxAge() time.Duration {
	if s.MaxAge > 0 {
		return s.MaxAge
	}
	return SyncInterval
}

func (s *Store) client() *httputil.RetryableClient {
	if s.Client != nil {
		return s.Client
	}
	return httputil.NewDefaultClient()
}
