// Package composer holds one editing session: a document editor, its
// attachment store, the paste handler and the live mention trigger.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/fetch"
	"github.com/starford/promptcraft/internal/mention"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/paste"
	"github.com/starford/promptcraft/internal/render"
	"github.com/starford/promptcraft/internal/serialize"
)

// ErrClosed is returned by Paste once the session has been closed.
var ErrClosed = fmt.Errorf("composer: session closed: %w", apperr.ErrNotFound)

// Session is safe for concurrent use. Background fetch completions only
// touch the store, which has its own lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	editor  *document.Editor
	store   *attachment.Store
	paste   *paste.Handler
	trigger *mention.Trigger
	closed  bool
}

// Options configure a new session.
type Options struct {
	Fetcher fetch.Fetcher
	Logger  *slog.Logger
	// OnFetch is called from the fetch goroutine once per pasted URL.
	OnFetch func(paste.Result)
}

// New creates an empty session.
func New(id string, opts Options) *Session {
	store := attachment.NewStore()
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		editor:    document.NewEditor(document.New()),
		store:     store,
		paste:     paste.NewHandler(opts.Fetcher, store, opts.Logger, opts.OnFetch),
	}
}

// TriggerView is the active trigger with its filtered suggestions.
type TriggerView struct {
	mention.Trigger
	Items []string `json:"items"`
}

// State is a consistent view of the session at one point in time.
type State struct {
	ID          string              `json:"id"`
	Document    document.Document   `json:"document"`
	Selection   document.Range      `json:"selection"`
	Trigger     *TriggerView        `json:"trigger,omitempty"`
	Blocks      []render.Block      `json:"blocks"`
	Attachments []models.Attachment `json:"attachments"`
	CanUndo     bool                `json:"can_undo"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Store exposes the session's attachment store.
func (s *Session) Store() *attachment.Store { return s.store }

// State returns the current session view.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	snap := s.store.Snapshot()
	doc := s.editor.Document()
	st := State{
		ID:          s.ID,
		Document:    doc,
		Selection:   s.editor.CurrentSelection(),
		Blocks:      render.Blocks(doc, snap),
		Attachments: snap.Items(),
		CanUndo:     s.editor.CanUndo(),
		CreatedAt:   s.CreatedAt,
	}
	if s.trigger != nil {
		sugg := s.suggestionsLocked(snap)
		tv := &TriggerView{Trigger: *s.trigger, Items: make([]string, 0, len(sugg.Items))}
		tv.Selected = sugg.Selected
		for _, a := range sugg.Items {
			tv.Items = append(tv.Items, a.FileName)
		}
		st.Trigger = tv
	}
	return st
}

// suggestionsLocked filters snap by the live query. Only the selected index
// is kept between calls; it is clamped to the current list so attachments
// added or removed while the trigger is open are reflected at once.
func (s *Session) suggestionsLocked(snap attachment.Snapshot) mention.Suggestions {
	sugg := mention.Suggest(snap, s.trigger.Query)
	if n := len(sugg.Items); n > 0 {
		sugg.Selected = s.trigger.Selected % n
	}
	return sugg
}

// rescan recomputes the trigger from the editor after every change.
func (s *Session) rescan() {
	t, ok := mention.Scan(s.editor)
	if !ok {
		s.trigger = nil
		return
	}
	s.trigger = &t
}

// edit runs fn under the lock and rescans on success.
func (s *Session) edit(fn func() error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return s.stateLocked(), err
	}
	s.rescan()
	return s.stateLocked(), nil
}

// Input inserts typed text at the cursor.
func (s *Session) Input(text string) (State, error) {
	return s.edit(func() error {
		if err := document.InsertText(s.editor, text); err != nil {
			return fmt.Errorf("composer: input: %w", err)
		}
		return nil
	})
}

// Select moves the cursor or sets an expanded selection.
func (s *Session) Select(r document.Range) (State, error) {
	return s.edit(func() error {
		var op document.EditOp = document.Select{Range: r}
		if r.Collapsed() {
			op = document.MoveCursor{To: r.Anchor}
		}
		if err := s.editor.ApplyEdit(op); err != nil {
			return fmt.Errorf("composer: select: %w", err)
		}
		return nil
	})
}

// Apply runs raw edit ops as one logical edit.
func (s *Session) Apply(ops ...document.EditOp) (State, error) {
	return s.edit(func() error {
		if err := s.editor.ApplyEdit(ops...); err != nil {
			return fmt.Errorf("composer: apply: %w", err)
		}
		return nil
	})
}

// SetDocument replaces the whole document as one undoable edit.
func (s *Session) SetDocument(doc document.Document) State {
	st, _ := s.edit(func() error {
		s.editor.Reset(doc)
		return nil
	})
	return st
}

// Next selects the next suggestion. It is a no-op without a trigger.
func (s *Session) Next() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trigger != nil {
		sugg := s.suggestionsLocked(s.store.Snapshot())
		sugg.Next()
		s.trigger.Selected = sugg.Selected
	}
	return s.stateLocked()
}

// Prev selects the previous suggestion. It is a no-op without a trigger.
func (s *Session) Prev() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trigger != nil {
		sugg := s.suggestionsLocked(s.store.Snapshot())
		sugg.Prev()
		s.trigger.Selected = sugg.Selected
	}
	return s.stateLocked()
}

// Confirm resolves the active trigger to the selected suggestion. It
// reports false and changes nothing when there is no trigger or the
// filtered list is empty.
func (s *Session) Confirm() (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trigger == nil {
		return s.stateLocked(), false, nil
	}
	a, ok := s.suggestionsLocked(s.store.Snapshot()).Current()
	if !ok {
		return s.stateLocked(), false, nil
	}
	if err := mention.Resolve(s.editor, *s.trigger, a.FileName); err != nil {
		return s.stateLocked(), false, fmt.Errorf("composer: resolve mention: %w", err)
	}
	s.trigger = nil
	return s.stateLocked(), true, nil
}

// Escape dismisses the active trigger until the next change.
func (s *Session) Escape() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trigger = nil
	return s.stateLocked()
}

// Paste inserts pasted text, starting a background fetch for a URL. It
// fails with ErrClosed after Close.
func (s *Session) Paste(ctx context.Context, text string) (State, paste.Outcome, error) {
	var out paste.Outcome
	st, err := s.edit(func() error {
		if s.closed {
			return ErrClosed
		}
		var err error
		out, err = s.paste.Paste(ctx, s.editor, text)
		return err
	})
	return st, out, err
}

// Undo reverts the last logical edit. It reports false when there is
// nothing to undo.
func (s *Session) Undo() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.editor.Undo()
	if ok {
		s.rescan()
	}
	return s.stateLocked(), ok
}

// Attach appends an attachment to the store. Document content is unchanged.
func (s *Session) Attach(a models.Attachment) models.Attachment {
	return s.store.Add(a)
}

// Detach removes an attachment by ID. Mentions bound to its name stay in
// the document and display as missing.
func (s *Session) Detach(id string) (models.Attachment, error) {
	a, err := s.store.Remove(id)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("composer: remove attachment: %w", err)
	}
	return a, nil
}

// Serialize flattens the current document against a store snapshot.
func (s *Session) Serialize() string {
	s.mu.Lock()
	doc := s.editor.Document()
	s.mu.Unlock()
	return serialize.Serialize(doc, s.store.Snapshot())
}

// Wait blocks until every pending fetch has completed.
func (s *Session) Wait() {
	s.paste.Wait()
}

// Close stops the session from starting new fetches and waits for the
// pending ones.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.paste.Wait()
}
