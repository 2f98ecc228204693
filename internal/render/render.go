// Package render produces display views of a document and its attachments.
// Existence of mention targets is read from an explicitly passed snapshot.
package render

import (
	"fmt"
	"strings"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/document"
)

// State is how a mention token should be displayed.
type State string

const (
	StatePresent State = "present"
	StateMissing State = "missing"
	StatePending State = "fetching"
	StateFailed  State = "failed"
)

// Span is one displayed inline element.
type Span struct {
	Kind     string `json:"kind"` // "text", "mention" or "url-mention"
	Text     string `json:"text"`
	FileName string `json:"file_name,omitempty"`
	URL      string `json:"url,omitempty"`
	State    State  `json:"state,omitempty"`
}

// Block is one displayed paragraph.
type Block struct {
	Spans []Span `json:"spans"`
}

// MentionState classifies a mention against snap. File mentions without a
// target are missing; URL mentions without one are still being fetched.
func MentionState(n document.Inline, snap attachment.Snapshot) State {
	switch v := n.(type) {
	case document.FileMention:
		if snap.Exists(v.FileName) {
			return StatePresent
		}
		return StateMissing
	case document.URLMention:
		a, ok := snap.Lookup(v.FileName)
		switch {
		case !ok:
			return StatePending
		case a.Failed:
			return StateFailed
		default:
			return StatePresent
		}
	default:
		return ""
	}
}

// Blocks renders doc into display spans.
func Blocks(doc document.Document, snap attachment.Snapshot) []Block {
	out := make([]Block, 0, len(doc.Blocks))
	for _, p := range doc.Blocks {
		b := Block{Spans: make([]Span, 0, len(p.Children))}
		for _, c := range p.Children {
			b.Spans = append(b.Spans, span(c, snap))
		}
		out = append(out, b)
	}
	return out
}

func span(n document.Inline, snap attachment.Snapshot) Span {
	switch v := n.(type) {
	case document.TextRun:
		return Span{Kind: "text", Text: v.Text}
	case document.FileMention:
		return Span{Kind: "mention", Text: v.FileName, FileName: v.FileName, State: MentionState(v, snap)}
	case document.URLMention:
		return Span{Kind: "url-mention", Text: v.URL, FileName: v.FileName, URL: v.URL, State: MentionState(v, snap)}
	default:
		panic(fmt.Sprintf("render: unknown inline %T", n))
	}
}

// Text renders doc as annotated plain text: file mentions as [@name],
// URL mentions as [link url], each followed by its state when not present.
func Text(doc document.Document, snap attachment.Snapshot) string {
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range Blocks(doc, snap) {
		var sb strings.Builder
		for _, s := range b.Spans {
			switch s.Kind {
			case "text":
				sb.WriteString(s.Text)
			case "mention":
				sb.WriteString("[@" + s.FileName + suffix(s.State) + "]")
			case "url-mention":
				sb.WriteString("[link " + s.URL + suffix(s.State) + "]")
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

func suffix(s State) string {
	if s == StatePresent {
		return ""
	}
	return " (" + string(s) + ")"
}
