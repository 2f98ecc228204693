package attachment

import (
	"errors"
	"sync"
	"testing"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/models"
)

func names(items []models.Attachment) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.FileName
	}
	return out
}

func TestAddAssignsIDAndKeepsOrder(t *testing.T) {
	s := NewStore()
	a := s.Add(models.Attachment{FileName: "a.txt", Content: "A"})
	b := s.Add(models.Attachment{FileName: "b.txt", Content: "B"})
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("ids = %q, %q", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	got := names(s.List())
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Errorf("order = %v", got)
	}
}

func TestRemove(t *testing.T) {
	s := NewStore()
	a := s.Add(models.Attachment{FileName: "a.txt"})
	if _, err := s.Remove(a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d after remove", s.Len())
	}
	if _, err := s.Remove(a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second remove err = %v, want ErrNotFound", err)
	}
}

func TestFilterCaseInsensitivePreservesOrder(t *testing.T) {
	s := NewStore()
	for _, n := range []string{"a.txt", "ab.txt", "b.txt"} {
		s.Add(models.Attachment{FileName: n})
	}
	got := names(s.Filter("a"))
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "ab.txt" {
		t.Errorf("filter(a) = %v, want [a.txt ab.txt]", got)
	}
	got = names(s.Filter("AB"))
	if len(got) != 1 || got[0] != "ab.txt" {
		t.Errorf("filter(AB) = %v", got)
	}
	if n := len(s.Filter("")); n != 3 {
		t.Errorf("empty query matched %d, want 3", n)
	}
}

func TestSnapshotLookupFirstMatch(t *testing.T) {
	s := NewStore()
	s.Add(models.Attachment{FileName: "dup.md", Content: "first"})
	s.Add(models.Attachment{FileName: "dup.md", Content: "second"})
	a, ok := s.Snapshot().Lookup("dup.md")
	if !ok || a.Content != "first" {
		t.Errorf("lookup = %+v, %v", a, ok)
	}
	if s.Snapshot().Exists("nope.md") {
		t.Error("missing name reported as existing")
	}
}

func TestSnapshotIsolatedFromLaterWrites(t *testing.T) {
	s := NewStore()
	s.Add(models.Attachment{FileName: "a.txt", Content: "v1"})
	snap := s.Snapshot()
	s.Add(models.Attachment{FileName: "b.txt"})
	if snap.Len() != 1 {
		t.Errorf("snapshot len = %d, want 1", snap.Len())
	}
}

func TestConcurrentAdds(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(models.Attachment{FileName: "x.md"})
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("len = %d, want 50", s.Len())
	}
}

func TestFromUpload(t *testing.T) {
	cases := []struct {
		name    string
		wantErr error
	}{
		{"notes.txt", nil},
		{"README.MD", nil},
		{"data.json", nil},
		{"image.png", apperr.ErrUnsupportedType},
		{"", apperr.ErrInvalidInput},
	}
	for _, tc := range cases {
		a, err := FromUpload(tc.name, []byte("# Title\nbody"), "")
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("%q: err = %v, want %v", tc.name, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.name, err)
			continue
		}
		if a.Content != "# Title\nbody" {
			t.Errorf("%q: content rewritten to %q", tc.name, a.Content)
		}
		if a.Source != models.SourceUpload {
			t.Errorf("%q: source = %q", tc.name, a.Source)
		}
	}
}

func TestFromUploadStripsDirectories(t *testing.T) {
	a, err := FromUpload("../../etc/notes.md", []byte("x"), models.SourceInbox)
	if err != nil {
		t.Fatalf("FromUpload: %v", err)
	}
	if a.FileName != "notes.md" {
		t.Errorf("file name = %q", a.FileName)
	}
}
