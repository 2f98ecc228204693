package mention

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/models"
)

func editorAtEnd(text string) *document.Editor {
	return document.NewEditor(document.New(document.Text(text)))
}

func TestScan(t *testing.T) {
	cases := []struct {
		text   string
		active bool
		query  string
		start  int
	}{
		{"hello @fo", true, "fo", 6},
		{"hello @fo ", false, "", 0},
		{"@", true, "", 0},
		{"@readme", true, "readme", 0},
		{"mail me@host", false, "", 0},
		{"@one @two", true, "two", 5},
		{"hello", false, "", 0},
		{"", false, "", 0},
		{"x @a.b", false, "", 0},
	}
	for _, tc := range cases {
		trig, ok := Scan(editorAtEnd(tc.text))
		if ok != tc.active {
			t.Errorf("%q: active = %v, want %v", tc.text, ok, tc.active)
			continue
		}
		if !ok {
			continue
		}
		if trig.Query != tc.query {
			t.Errorf("%q: query = %q, want %q", tc.text, trig.Query, tc.query)
		}
		if trig.Range.Start().Offset != tc.start {
			t.Errorf("%q: start = %d, want %d", tc.text, trig.Range.Start().Offset, tc.start)
		}
		if trig.Selected != 0 {
			t.Errorf("%q: selected = %d", tc.text, trig.Selected)
		}
	}
}

func TestScanIgnoresExpandedSelection(t *testing.T) {
	ed := editorAtEnd("hi @fo")
	_ = ed.ApplyEdit(document.Select{Range: document.Range{
		Anchor: document.Position{Block: 0, Offset: 0},
		Focus:  document.Position{Block: 0, Offset: 6},
	}})
	if _, ok := Scan(ed); ok {
		t.Error("expanded selection should not produce a trigger")
	}
}

func TestScanStopsAfterDeletingAt(t *testing.T) {
	ed := editorAtEnd("hi @")
	if _, ok := Scan(ed); !ok {
		t.Fatal("expected trigger after typing @")
	}
	_ = ed.ApplyEdit(document.Delete{Range: document.Range{
		Anchor: document.Position{Block: 0, Offset: 3},
		Focus:  document.Position{Block: 0, Offset: 4},
	}})
	if _, ok := Scan(ed); ok {
		t.Error("trigger should end once @ is deleted")
	}
}

func TestScanAfterToken(t *testing.T) {
	doc := document.New(document.Paragraph{Children: []document.Inline{
		document.FileMention{FileName: "a.md"}, document.TextRun{Text: "@b"},
	}})
	trig, ok := Scan(document.NewEditor(doc))
	if !ok || trig.Query != "b" {
		t.Errorf("trigger after token = %+v, %v", trig, ok)
	}
}

func snapOf(names ...string) attachment.Snapshot {
	items := make([]models.Attachment, len(names))
	for i, n := range names {
		items[i] = models.Attachment{FileName: n}
	}
	return attachment.NewSnapshot(items...)
}

func TestSuggestFilters(t *testing.T) {
	s := Suggest(snapOf("a.txt", "ab.txt", "b.txt"), "a")
	var got []string
	for _, a := range s.Items {
		got = append(got, a.FileName)
	}
	if diff := cmp.Diff([]string{"a.txt", "ab.txt"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSuggestionCycling(t *testing.T) {
	s := Suggest(snapOf("a", "b", "c"), "")
	s.Selected = 2
	s.Next()
	if s.Selected != 0 {
		t.Errorf("next from 2 = %d, want 0", s.Selected)
	}
	s.Prev()
	if s.Selected != 2 {
		t.Errorf("prev from 0 = %d, want 2", s.Selected)
	}
	s.Prev()
	if s.Selected != 1 {
		t.Errorf("prev from 2 = %d, want 1", s.Selected)
	}

	empty := Suggest(snapOf("a"), "zzz")
	empty.Next()
	empty.Prev()
	if empty.Selected != 0 {
		t.Errorf("empty list selected = %d", empty.Selected)
	}
	if _, ok := empty.Current(); ok {
		t.Error("empty list has no current item")
	}
}

func TestResolve(t *testing.T) {
	ed := editorAtEnd("see @rea and")
	_ = ed.ApplyEdit(document.MoveCursor{To: document.Position{Block: 0, Offset: 8}})
	trig, ok := Scan(ed)
	if !ok || trig.Query != "rea" {
		t.Fatalf("scan = %+v, %v", trig, ok)
	}
	if err := Resolve(ed, trig, "readme.md"); err != nil {
		t.Fatal(err)
	}
	want := document.New(document.Paragraph{Children: []document.Inline{
		document.TextRun{Text: "see "},
		document.FileMention{FileName: "readme.md"},
		document.TextRun{Text: " and"},
	}})
	if diff := cmp.Diff(want, ed.Document()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := ed.CurrentSelection(); got != document.Collapse(document.Position{Block: 0, Offset: 5}) {
		t.Errorf("cursor = %+v, want after token", got)
	}
	if _, ok := Scan(ed); ok {
		t.Error("trigger should be gone after resolving")
	}

	// One undo restores the typed trigger text.
	ed.Undo()
	if got := ed.Document().PlainText(); got != "see @rea and" {
		t.Errorf("after undo = %q", got)
	}
}
