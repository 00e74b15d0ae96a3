package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"anrbot/internal/httputil"
)

const oldDataset = `{"imageUrlTemplate": "", "data": [{"title": "Sure Gamble", "code": "01050"}]}`
const newDataset = `{"imageUrlTemplate": "", "data": [{"title": "Sure Gamble", "code": "01050"}, {"title": "Dirty Laundry", "code": "01003"}]}`

func newTestStore(t *testing.T, handler http.HandlerFunc) (*Store, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	store := NewStore(filepath.Join(t.TempDir(), "cards.json"), server.URL)
	store.Client = httputil.NewRetryableClient(5*time.Second, 0)
	return store, &hits
}

func writeLocal(t *testing.T, s *Store, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(s.Path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(s.Path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func serve(body string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestStore_RefreshIfStale_Fresh(t *testing.T) {
	store, hits := newTestStore(t, serve(newDataset, http.StatusOK))
	written := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	writeLocal(t, store, oldDataset, written)
	store.Now = func() time.Time { return written.Add(23 * time.Hour) }

	if store.RefreshIfStale(context.Background()) {
		t.Error("expected no refresh for a fresh copy")
	}
	if *hits != 0 {
		t.Errorf("server hit %d times, want 0", *hits)
	}
}

func TestStore_RefreshIfStale_Stale(t *testing.T) {
	store, hits := newTestStore(t, serve(newDataset, http.StatusOK))
	written := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	writeLocal(t, store, oldDataset, written)
	store.Now = func() time.Time { return written.Add(SyncInterval) }

	if !store.RefreshIfStale(context.Background()) {
		t.Fatal("expected a refresh at exactly the sync interval")
	}
	if *hits != 1 {
		t.Errorf("server hit %d times, want 1", *hits)
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after refresh", c.Len())
	}
}

func TestStore_RefreshIfStale_Missing(t *testing.T) {
	store, _ := newTestStore(t, serve(newDataset, http.StatusOK))

	if !store.RefreshIfStale(context.Background()) {
		t.Fatal("expected a refresh when no local copy exists")
	}
	if _, err := store.Load(); err != nil {
		t.Errorf("Load failed: %v", err)
	}
}

func TestStore_RefreshIfStale_FailOpen(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", serve("boom", http.StatusInternalServerError)},
		{"not found", serve("gone", http.StatusNotFound)},
		{"corrupt payload", serve(`{"data": [{"title": ""}]}`, http.StatusOK)},
		{"truncated payload", serve(`{"data": [`, http.StatusOK)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, tt.handler)
			written := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			writeLocal(t, store, oldDataset, written)
			store.Now = func() time.Time { return written.Add(48 * time.Hour) }

			if store.RefreshIfStale(context.Background()) {
				t.Error("expected refresh to report failure")
			}

			c, err := store.Load()
			if err != nil {
				t.Fatalf("stale copy should still load: %v", err)
			}
			if c.Len() != 1 {
				t.Errorf("Len() = %d, want the stale copy's 1", c.Len())
			}

			// No temp files left behind next to the cache.
			entries, _ := os.ReadDir(filepath.Dir(store.Path))
			if len(entries) != 1 {
				t.Errorf("expected only cards.json in cache dir, found %d entries", len(entries))
			}
		})
	}
}

func TestStore_Load_Missing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cards.json"), "http://unused.invalid")
	if _, err := store.Load(); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
