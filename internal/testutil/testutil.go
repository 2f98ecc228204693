// Package testutil provides shared test helpers for history databases,
// export directories and fake collaborators.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/history"
	"github.com/starford/promptcraft/internal/storage"
)

// TestHistory creates a temporary SQLite history database that is
// automatically closed.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestExportDir creates a temporary export directory.
func TestExportDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// StubFetcher serves canned markdown per URL and fails for anything else.
type StubFetcher struct {
	mu    sync.Mutex
	Pages map[string]string
	Calls []string
}

// NewStubFetcher returns a fetcher over pages.
func NewStubFetcher(pages map[string]string) *StubFetcher {
	if pages == nil {
		pages = map[string]string{}
	}
	return &StubFetcher{Pages: pages}
}

// Fetch implements fetch.Fetcher.
func (s *StubFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, rawURL)
	if md, ok := s.Pages[rawURL]; ok {
		return md, nil
	}
	return "", fmt.Errorf("stub: %s unreachable: %w", rawURL, apperr.ErrFetch)
}

// MemClipboard records the last copied text.
type MemClipboard struct {
	mu   sync.Mutex
	text string
	Err  error
}

// WriteAll implements export.Clipboard.
func (m *MemClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.text = text
	return nil
}

// Text returns the last copied text.
func (m *MemClipboard) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
