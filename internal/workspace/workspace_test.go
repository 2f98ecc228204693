package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/export"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/sse"
	"github.com/starford/promptcraft/internal/testutil"
)

func newWorkspace(t *testing.T, pages map[string]string) (*Workspace, *sse.Broker) {
	t.Helper()
	db := testutil.TestHistory(t)
	b := sse.NewBroker(time.Hour)
	t.Cleanup(b.Close)
	w := New(Options{
		Fetcher:  testutil.NewStubFetcher(pages),
		Exporter: &export.Exporter{Clip: &testutil.MemClipboard{}, History: db},
		History:  db,
		Broker:   b,
	})
	return w, b
}

// drain collects event type lines until no message arrives for a short while.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			line := strings.SplitN(string(msg), "\n", 2)[0]
			out = append(out, strings.TrimPrefix(line, "event: "))
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSessionLifecycle(t *testing.T) {
	w, _ := newWorkspace(t, nil)
	if _, err := w.Session(DefaultSessionID); err != nil {
		t.Fatalf("default session missing: %v", err)
	}
	s := w.CreateSession()
	if got, err := w.Session(s.ID); err != nil || got != s {
		t.Fatalf("Session(%s) = %v, %v", s.ID, got, err)
	}
	if n := len(w.Sessions()); n != 2 {
		t.Errorf("sessions = %d, want 2", n)
	}
	if err := w.DeleteSession(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Session(s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted session err = %v", err)
	}
	if err := w.DeleteSession(s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete err = %v", err)
	}
	// A request that resolved the session before the delete cannot start
	// new fetches on it.
	if _, _, err := s.Paste(context.Background(), "https://example.com/late"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("paste on deleted session err = %v", err)
	}
	if err := w.DeleteSession(DefaultSessionID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("delete default err = %v", err)
	}
}

func TestUploadAndRemovePublishEvents(t *testing.T) {
	w, b := newWorkspace(t, nil)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if _, err := w.Upload(DefaultSessionID, "pic.png", []byte("x")); !errors.Is(err, apperr.ErrUnsupportedType) {
		t.Fatalf("png upload err = %v", err)
	}
	a, err := w.Upload(DefaultSessionID, "notes.md", []byte("# n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.RemoveAttachment(DefaultSessionID, a.ID); err != nil {
		t.Fatal(err)
	}
	events := drain(ch)
	for _, want := range []string{sse.TypeAttachmentAdded, sse.TypeAttachmentRemoved, sse.TypeStoreUpdated} {
		if !contains(events, want) {
			t.Errorf("events %v missing %s", events, want)
		}
	}
}

func TestPasteFetchFailurePublishes(t *testing.T) {
	w, b := newWorkspace(t, nil)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	s, _ := w.Session(DefaultSessionID)
	if _, _, err := s.Paste(context.Background(), "https://down.example.com/x"); err != nil {
		t.Fatal(err)
	}
	w.Wait()
	if !contains(drain(ch), sse.TypeFetchFailed) {
		t.Error("expected fetch.failed event")
	}
	items := s.Store().List()
	if len(items) != 1 || !items[0].Failed || !strings.Contains(items[0].Content, "down.example.com") {
		t.Errorf("store = %+v", items)
	}
}

func TestAddURL(t *testing.T) {
	w, _ := newWorkspace(t, map[string]string{"https://example.com/doc": "# Doc"})
	a, err := w.AddURL(context.Background(), DefaultSessionID, "https://example.com/doc")
	if err != nil {
		t.Fatal(err)
	}
	if a.FileName != "example.com-doc.md" || a.Content != "# Doc" || a.Failed {
		t.Errorf("attachment = %+v", a)
	}
}

func TestIngestReplacesPreviousVersion(t *testing.T) {
	w, _ := newWorkspace(t, nil)
	w.Ingest("drop.md", models.Attachment{FileName: "drop.md", Content: "v1", Source: models.SourceInbox})
	w.Ingest("drop.md", models.Attachment{FileName: "drop.md", Content: "v2", Source: models.SourceInbox})
	s, _ := w.Session(DefaultSessionID)
	items := s.Store().List()
	if len(items) != 1 || items[0].Content != "v2" {
		t.Fatalf("store = %+v", items)
	}
	w.Forget("drop.md")
	if s.Store().Len() != 0 {
		t.Error("forget should remove the attachment")
	}
	w.Forget("drop.md")
}

func TestExportClipboardRecordsHistory(t *testing.T) {
	w, b := newWorkspace(t, nil)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	s, _ := w.Session(DefaultSessionID)
	_, _ = w.AddText(DefaultSessionID, "ctx.md", "CONTEXT")
	_, _ = s.Input("Use @ct")
	if _, ok, _ := s.Confirm(); !ok {
		t.Fatal("confirm failed")
	}

	rec, err := w.ExportClipboard(context.Background(), DefaultSessionID)
	if err != nil {
		t.Fatal(err)
	}
	if clip := w.Exporter().Clip.(*testutil.MemClipboard); clip.Text() != "Use CONTEXT" {
		t.Errorf("clipboard = %q", clip.Text())
	}
	list, total, err := w.Exports(10, 0, DefaultSessionID)
	if err != nil || total != 1 || list[0].ID != rec.ID {
		t.Errorf("exports = %+v total=%d err=%v", list, total, err)
	}
	hits, _ := w.SearchExports("CONTEXT", 5)
	if len(hits) != 1 {
		t.Errorf("search hits = %+v", hits)
	}
	if !contains(drain(ch), sse.TypeExportCompleted) {
		t.Error("expected export.completed event")
	}
}

func TestAssemble(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("NOTES"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "extra.txt"), []byte("EXTRA"), 0o644)
	w, _ := newWorkspace(t, map[string]string{"https://example.com/a": "PAGE"})

	markup := "---\nattachments:\n  - notes.md\n---\nSummarize [[notes.md]] with [[https://example.com/a]].\n[[extra.txt]] [[gone.md]]|[[https://down.example.com/b]]\n"
	out, err := w.Assemble(context.Background(), AssembleInput{
		Markup:  []byte(markup),
		BaseDir: dir,
		Attach:  []string{"extra.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.Text, "Summarize NOTES with PAGE.\nEXTRA |# Content from down.example.com") {
		t.Errorf("text = %q", out.Text)
	}
	if len(out.Failed) != 1 || out.Failed[0] != "https://down.example.com/b" {
		t.Errorf("failed = %v", out.Failed)
	}
	if _, err := w.Session("assemble"); err == nil {
		t.Error("assemble session should not be registered")
	}

	_, err = w.Assemble(context.Background(), AssembleInput{Markup: []byte("x"), BaseDir: dir, Attach: []string{"missing.md"}})
	if err == nil {
		t.Error("expected error for missing attachment file")
	}
}

func TestJoinFiles(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("A"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.txt"), []byte("B"), 0o644)
	got, err := JoinFiles(dir, []string{"a.txt", "b.txt"})
	if err != nil || got != "A\n\nB" {
		t.Errorf("JoinFiles = %q, %v", got, err)
	}
}
