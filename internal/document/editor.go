package document

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/starford/promptcraft/internal/apperr"
)

// Position addresses a point between offset units of a block.
type Position struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

// Before reports whether p sorts before q.
func (p Position) Before(q Position) bool {
	if p.Block != q.Block {
		return p.Block < q.Block
	}
	return p.Offset < q.Offset
}

// Range is a selection between two positions in any order.
type Range struct {
	Anchor Position `json:"anchor"`
	Focus  Position `json:"focus"`
}

// Collapse returns the collapsed range at p.
func Collapse(p Position) Range {
	return Range{Anchor: p, Focus: p}
}

// Collapsed reports whether the range is a single point.
func (r Range) Collapsed() bool { return r.Anchor == r.Focus }

// Start returns the earlier endpoint.
func (r Range) Start() Position {
	if r.Focus.Before(r.Anchor) {
		return r.Focus
	}
	return r.Anchor
}

// End returns the later endpoint.
func (r Range) End() Position {
	if r.Focus.Before(r.Anchor) {
		return r.Anchor
	}
	return r.Focus
}

// EditOp is the closed set {Delete, InsertNode, MoveCursor, Select}.
type EditOp interface {
	isEditOp()
}

// Delete removes the content spanned by Range and collapses the cursor to
// its start.
type Delete struct {
	Range Range
}

// InsertNode inserts Node at At. Inline nodes land at the position; a
// Paragraph splits the block at At and starts a new block holding its
// children followed by the split-off tail.
type InsertNode struct {
	At   Position
	Node Node
}

// MoveCursor collapses the selection at To.
type MoveCursor struct {
	To Position
}

// Select sets an arbitrary (possibly expanded) selection.
type Select struct {
	Range Range
}

func (Delete) isEditOp()     {}
func (InsertNode) isEditOp() {}
func (MoveCursor) isEditOp() {}
func (Select) isEditOp()     {}

// Unit selects how much text TextBefore returns.
type Unit int

const (
	UnitCharacter Unit = iota
	UnitWord
	UnitBlock
)

// DocumentEditor is the editing surface the mention logic works against.
type DocumentEditor interface {
	CurrentSelection() Range
	ApplyEdit(ops ...EditOp) error
	TextBefore(pos Position, unit Unit) string
	Document() Document
}

type state struct {
	doc Document
	sel Range
}

// Editor is an in-memory DocumentEditor with undo. It is not safe for
// concurrent use; callers serialize access.
type Editor struct {
	cur  state
	undo []state
}

var _ DocumentEditor = (*Editor)(nil)

// NewEditor creates an editor over doc with the cursor at its end.
func NewEditor(doc Document) *Editor {
	if len(doc.Blocks) == 0 {
		doc = New()
	}
	return &Editor{cur: state{doc: doc.Clone(), sel: Collapse(doc.End())}}
}

// Document returns a copy of the current document.
func (e *Editor) Document() Document { return e.cur.doc.Clone() }

// CurrentSelection returns the current selection.
func (e *Editor) CurrentSelection() Range { return e.cur.sel }

// CanUndo reports whether an edit can be undone.
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }

// Undo reverts the last logical edit.
func (e *Editor) Undo() bool {
	n := len(e.undo)
	if n == 0 {
		return false
	}
	e.cur = e.undo[n-1]
	e.undo = e.undo[:n-1]
	return true
}

// Reset replaces the whole document as one undoable edit.
func (e *Editor) Reset(doc Document) {
	if len(doc.Blocks) == 0 {
		doc = New()
	}
	e.undo = append(e.undo, e.cur)
	e.cur = state{doc: doc.Clone(), sel: Collapse(doc.End())}
}

// ApplyEdit applies ops in order as a single logical edit. Positions in each
// op refer to the document as left by the previous op. Either every op
// applies or none does.
func (e *Editor) ApplyEdit(ops ...EditOp) error {
	next := state{doc: e.cur.doc.Clone(), sel: e.cur.sel}
	changed := false
	for i, op := range ops {
		mutated, err := next.apply(op)
		if err != nil {
			return fmt.Errorf("document: op %d: %w", i, err)
		}
		changed = changed || mutated
	}
	if changed {
		e.undo = append(e.undo, e.cur)
	}
	e.cur = next
	return nil
}

func (s *state) apply(op EditOp) (bool, error) {
	switch v := op.(type) {
	case Delete:
		return true, s.delete(v.Range)
	case InsertNode:
		return true, s.insert(v.At, v.Node)
	case MoveCursor:
		if err := s.check(v.To); err != nil {
			return false, err
		}
		s.sel = Collapse(v.To)
		return false, nil
	case Select:
		if err := s.check(v.Range.Anchor); err != nil {
			return false, err
		}
		if err := s.check(v.Range.Focus); err != nil {
			return false, err
		}
		s.sel = v.Range
		return false, nil
	default:
		return false, fmt.Errorf("unknown edit op %T: %w", op, apperr.ErrInvalidInput)
	}
}

func (s *state) check(p Position) error {
	if p.Block < 0 || p.Block >= len(s.doc.Blocks) {
		return fmt.Errorf("block %d out of range: %w", p.Block, apperr.ErrInvalidInput)
	}
	if w := s.doc.Blocks[p.Block].Width(); p.Offset < 0 || p.Offset > w {
		return fmt.Errorf("offset %d out of range [0,%d]: %w", p.Offset, w, apperr.ErrInvalidInput)
	}
	return nil
}

func (s *state) delete(r Range) error {
	start, end := r.Start(), r.End()
	if err := s.check(start); err != nil {
		return err
	}
	if err := s.check(end); err != nil {
		return err
	}
	head, _ := s.doc.Blocks[start.Block].split(start.Offset)
	_, tail := s.doc.Blocks[end.Block].split(end.Offset)

	merged := Paragraph{Children: normalize(append(head, tail...))}
	blocks := append([]Paragraph{}, s.doc.Blocks[:start.Block]...)
	blocks = append(blocks, merged)
	blocks = append(blocks, s.doc.Blocks[end.Block+1:]...)
	s.doc.Blocks = blocks
	s.sel = Collapse(start)
	return nil
}

func (s *state) insert(at Position, n Node) error {
	if err := s.check(at); err != nil {
		return err
	}
	head, tail := s.doc.Blocks[at.Block].split(at.Offset)

	switch v := n.(type) {
	case TextRun:
		if strings.ContainsAny(v.Text, "\r\n") {
			return fmt.Errorf("text run contains a line break: %w", apperr.ErrInvalidInput)
		}
		s.insertInline(at, head, tail, v)
	case FileMention, URLMention:
		s.insertInline(at, head, tail, v.(Inline))
	case Paragraph:
		children := append(append([]Inline{}, v.Children...), tail...)
		blocks := append([]Paragraph{}, s.doc.Blocks[:at.Block]...)
		blocks = append(blocks,
			Paragraph{Children: normalize(head)},
			Paragraph{Children: normalize(children)},
		)
		blocks = append(blocks, s.doc.Blocks[at.Block+1:]...)
		s.doc.Blocks = blocks
		s.sel = Collapse(Position{Block: at.Block + 1, Offset: v.Width()})
	default:
		return fmt.Errorf("unknown node %T: %w", n, apperr.ErrInvalidInput)
	}
	return nil
}

func (s *state) insertInline(at Position, head, tail []Inline, n Inline) {
	children := append(append(head, n), tail...)
	s.doc.Blocks[at.Block] = Paragraph{Children: normalize(children)}
	s.sel = Collapse(Position{Block: at.Block, Offset: at.Offset + n.Width()})
}

// TextBefore returns text immediately preceding pos within its block.
// Mention tokens appear as TokenRune in UnitBlock and stop UnitWord.
func (e *Editor) TextBefore(pos Position, unit Unit) string {
	if e.cur.check(pos) != nil {
		return ""
	}
	r := e.cur.doc.Blocks[pos.Block].runes()[:pos.Offset]
	switch unit {
	case UnitCharacter:
		if len(r) == 0 || r[len(r)-1] == TokenRune {
			return ""
		}
		return string(r[len(r)-1:])
	case UnitWord:
		i := len(r)
		for i > 0 && !unicode.IsSpace(r[i-1]) && r[i-1] != TokenRune {
			i--
		}
		return string(r[i:])
	default:
		return string(r)
	}
}

// InsertText inserts s at the cursor, replacing any expanded selection.
// Line breaks in s start new paragraphs. The whole insertion is one edit.
func InsertText(ed DocumentEditor, s string) error {
	sel := ed.CurrentSelection()
	var ops []EditOp
	at := sel.Start()
	if !sel.Collapsed() {
		ops = append(ops, Delete{Range: sel})
	}
	lines := SplitLines(s)
	cursor := at
	for i, line := range lines {
		if i == 0 {
			if line != "" {
				ops = append(ops, InsertNode{At: cursor, Node: TextRun{Text: line}})
			}
			cursor.Offset += TextRun{Text: line}.Width()
			continue
		}
		ops = append(ops, InsertNode{At: cursor, Node: Text(line)})
		cursor = Position{Block: cursor.Block + 1, Offset: TextRun{Text: line}.Width()}
	}
	return ed.ApplyEdit(ops...)
}

// SplitLines splits s on \n, \r\n or \r.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
