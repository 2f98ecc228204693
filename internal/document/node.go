// Package document models a prompt as blocks of inline nodes and exposes an
// explicit editing interface over it.
package document

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// TokenRune stands in for a mention token in text views of a block. Every
// token occupies exactly one offset unit, so offsets map 1:1 onto runes.
const TokenRune = '\uFFFC'

// Node is the closed set {TextRun, FileMention, URLMention, Paragraph}.
type Node interface {
	isNode()
}

// Inline is a node that lives inside a Paragraph.
type Inline interface {
	Node
	// Width is the number of offset units the node occupies.
	Width() int
}

// TextRun is a plain text run. It never contains a newline.
type TextRun struct {
	Text string
}

// FileMention is an atomic token bound to an attachment by file name.
type FileMention struct {
	FileName string
}

// URLMention is an atomic token created from a pasted URL. FileName is the
// name derived from URL; the attachment appears once the fetch completes.
type URLMention struct {
	URL      string
	FileName string
}

// Paragraph is a block of inline nodes.
type Paragraph struct {
	Children []Inline
}

func (TextRun) isNode()     {}
func (FileMention) isNode() {}
func (URLMention) isNode()  {}
func (Paragraph) isNode()   {}

func (t TextRun) Width() int   { return utf8.RuneCountInString(t.Text) }
func (FileMention) Width() int { return 1 }
func (URLMention) Width() int  { return 1 }

// Width returns the total offset units of the paragraph.
func (p Paragraph) Width() int {
	n := 0
	for _, c := range p.Children {
		n += c.Width()
	}
	return n
}

// MentionName returns the bound file name if n is a mention token.
func MentionName(n Node) (string, bool) {
	switch v := n.(type) {
	case FileMention:
		return v.FileName, true
	case URLMention:
		return v.FileName, true
	default:
		return "", false
	}
}

// runes returns the text view of the paragraph with tokens as TokenRune.
func (p Paragraph) runes() []rune {
	out := make([]rune, 0, p.Width())
	for _, c := range p.Children {
		switch v := c.(type) {
		case TextRun:
			out = append(out, []rune(v.Text)...)
		case FileMention, URLMention:
			out = append(out, TokenRune)
		}
	}
	return out
}

// Text returns the paragraph's text runs with tokens shown as TokenRune.
func (p Paragraph) Text() string {
	return string(p.runes())
}

// split cuts the children at offset. Text runs straddling the cut are split.
func (p Paragraph) split(offset int) (head, tail []Inline) {
	pos := 0
	for i, c := range p.Children {
		w := c.Width()
		switch {
		case pos+w <= offset:
			head = append(head, c)
		case pos >= offset:
			tail = append(tail, p.Children[i:]...)
			return head, tail
		default:
			// Only text runs can straddle the cut; tokens have width 1.
			r := []rune(c.(TextRun).Text)
			head = append(head, TextRun{Text: string(r[:offset-pos])})
			tail = append(tail, TextRun{Text: string(r[offset-pos:])})
			tail = append(tail, p.Children[i+1:]...)
			return head, tail
		}
		pos += w
	}
	return head, tail
}

// normalize merges adjacent text runs and drops empty ones.
func normalize(children []Inline) []Inline {
	out := make([]Inline, 0, len(children))
	for _, c := range children {
		if t, ok := c.(TextRun); ok {
			if t.Text == "" {
				continue
			}
			if n := len(out); n > 0 {
				if prev, ok := out[n-1].(TextRun); ok {
					out[n-1] = TextRun{Text: prev.Text + t.Text}
					continue
				}
			}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Text builds a paragraph from plain text.
func Text(s string) Paragraph {
	return Paragraph{Children: normalize([]Inline{TextRun{Text: s}})}
}

// Document is an ordered sequence of paragraphs. A document always has at
// least one (possibly empty) paragraph.
type Document struct {
	Blocks []Paragraph
}

// New returns a document with one empty paragraph.
func New(blocks ...Paragraph) Document {
	if len(blocks) == 0 {
		return Document{Blocks: []Paragraph{{}}}
	}
	d := Document{Blocks: make([]Paragraph, len(blocks))}
	for i, b := range blocks {
		d.Blocks[i] = Paragraph{Children: normalize(b.Children)}
	}
	return d
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{Blocks: make([]Paragraph, len(d.Blocks))}
	for i, b := range d.Blocks {
		out.Blocks[i] = Paragraph{Children: append([]Inline(nil), b.Children...)}
	}
	return out
}

// End returns the position after the last node of the document.
func (d Document) End() Position {
	last := len(d.Blocks) - 1
	if last < 0 {
		return Position{}
	}
	return Position{Block: last, Offset: d.Blocks[last].Width()}
}

// Mentions returns every mention token in document order.
func (d Document) Mentions() []Inline {
	var out []Inline
	for _, b := range d.Blocks {
		for _, c := range b.Children {
			if _, ok := MentionName(c); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// PlainText joins the text view of all blocks with newlines. Tokens appear
// as TokenRune; use the serialize package for export output.
func (d Document) PlainText() string {
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, "\n")
}

type jsonNode struct {
	Type     string     `json:"type"`
	Text     *string    `json:"text,omitempty"`
	FileName string     `json:"fileName,omitempty"`
	URL      string     `json:"url,omitempty"`
	Children []jsonNode `json:"children,omitempty"`
}

func toJSONNode(n Node) jsonNode {
	switch v := n.(type) {
	case TextRun:
		s := v.Text
		return jsonNode{Type: "text", Text: &s}
	case FileMention:
		return jsonNode{Type: "mention", FileName: v.FileName}
	case URLMention:
		return jsonNode{Type: "url-mention", URL: v.URL, FileName: v.FileName}
	case Paragraph:
		out := jsonNode{Type: "paragraph", Children: make([]jsonNode, 0, len(v.Children))}
		for _, c := range v.Children {
			out.Children = append(out.Children, toJSONNode(c))
		}
		return out
	default:
		panic("document: unknown node type")
	}
}

// MarshalJSON encodes the document as a list of typed nodes.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make([]jsonNode, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		out = append(out, toJSONNode(b))
	}
	return json.Marshal(out)
}
