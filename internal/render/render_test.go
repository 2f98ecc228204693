package render

import (
	"strings"
	"testing"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/models"
)

func TestMentionStates(t *testing.T) {
	snap := attachment.NewSnapshot(
		models.Attachment{FileName: "here.md"},
		models.Attachment{FileName: "bad.md", Failed: true},
	)
	cases := []struct {
		node document.Inline
		want State
	}{
		{document.FileMention{FileName: "here.md"}, StatePresent},
		{document.FileMention{FileName: "gone.md"}, StateMissing},
		{document.URLMention{URL: "https://x.io", FileName: "later.md"}, StatePending},
		{document.URLMention{URL: "https://x.io", FileName: "bad.md"}, StateFailed},
		{document.URLMention{URL: "https://x.io", FileName: "here.md"}, StatePresent},
		{document.TextRun{Text: "t"}, ""},
	}
	for _, tc := range cases {
		if got := MentionState(tc.node, snap); got != tc.want {
			t.Errorf("%#v: state = %q, want %q", tc.node, got, tc.want)
		}
	}
}

func TestText(t *testing.T) {
	snap := attachment.NewSnapshot(models.Attachment{FileName: "a.md"})
	doc := document.New(
		document.Paragraph{Children: []document.Inline{
			document.TextRun{Text: "use "},
			document.FileMention{FileName: "a.md"},
			document.TextRun{Text: " and "},
			document.FileMention{FileName: "b.md"},
		}},
		document.Paragraph{Children: []document.Inline{
			document.URLMention{URL: "https://x.io/p", FileName: "x.io-p.md"},
		}},
	)
	want := "use [@a.md] and [@b.md (missing)]\n[link https://x.io/p (fetching)]"
	if got := Text(doc, snap); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML("# Title\n\nbody")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<h1>Title</h1>") || !strings.Contains(out, "<p>body</p>") {
		t.Errorf("html = %q", out)
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("# Heading\n\ntext", 40, "notty")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Heading") {
		t.Errorf("terminal output = %q", out)
	}
}
