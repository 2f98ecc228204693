package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/storage"
)

type recordingSink struct {
	mu      sync.Mutex
	current map[string]models.Attachment
	events  []string
}

func newSink() *recordingSink {
	return &recordingSink{current: make(map[string]models.Attachment)}
}

func (s *recordingSink) Ingest(path string, a models.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[path] = a
	s.events = append(s.events, "ingest:"+path)
}

func (s *recordingSink) Forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, path)
	s.events = append(s.events, "forget:"+path)
}

func (s *recordingSink) get(path string) (models.Attachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.current[path]
	return a, ok
}

func testEnv(t *testing.T) (string, *Inbox, *recordingSink) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	sink := newSink()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	in := New(fs, sink, logger)
	in.debounce = 20 * time.Millisecond
	return dir, in, sink
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestSyncIngestsAcceptedFiles(t *testing.T) {
	dir, in, sink := testEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Notes"), 0o644)
	_ = os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "sub", "data.json"), []byte(`{"a":1}`), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "photo.png"), []byte("png"), 0o644)

	if err := in.Sync(); err != nil {
		t.Fatal(err)
	}
	a, ok := sink.get("notes.md")
	if !ok || a.Content != "# Notes" || a.Source != models.SourceInbox || a.FileName != "notes.md" {
		t.Errorf("notes.md = %+v, %v", a, ok)
	}
	if a, ok := sink.get(filepath.Join("sub", "data.json")); !ok || a.FileName != "data.json" {
		t.Errorf("sub/data.json = %+v, %v", a, ok)
	}
	if _, ok := sink.get("photo.png"); ok {
		t.Error("png should not be ingested")
	}

	// Unchanged files are not re-ingested.
	n := len(sink.events)
	_ = in.Sync()
	if len(sink.events) != n {
		t.Errorf("second sync produced events: %v", sink.events[n:])
	}

	_ = os.Remove(filepath.Join(dir, "notes.md"))
	_ = in.Sync()
	if _, ok := sink.get("notes.md"); ok {
		t.Error("removed file should be forgotten")
	}
}

func TestWatchPicksUpChanges(t *testing.T) {
	dir, in, sink := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = in.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "drop.txt")
	_ = os.WriteFile(path, []byte("first"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		a, ok := sink.get("drop.txt")
		return ok && a.Content == "first"
	}, "new file not ingested")

	_ = os.WriteFile(path, []byte("second"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		a, ok := sink.get("drop.txt")
		return ok && a.Content == "second"
	}, "updated file not re-ingested")

	_ = os.Remove(path)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		_, ok := sink.get("drop.txt")
		return !ok
	}, "removed file not forgotten")
}

func TestWatchRenameReconciles(t *testing.T) {
	dir, in, sink := testEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "old.md"), []byte("moving"), 0o644)
	_ = in.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = in.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "old.md"), filepath.Join(dir, "new.md"))
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		_, oldOK := sink.get("old.md")
		a, newOK := sink.get("new.md")
		return !oldOK && newOK && a.Content == "moving"
	}, "rename not reconciled")
}
