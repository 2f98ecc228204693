package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/promptcraft/internal/composer"
	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/history"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/paste"
)

// SessionState is the full session view (aliased from the composer layer).
type SessionState = composer.State

// SessionSummary is a lightweight item in the session list.
type SessionSummary struct {
	ID          string    `json:"id" example:"default" validate:"required"`
	Attachments int       `json:"attachments" example:"2"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionListResponse wraps the session list.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions" validate:"required"`
}

// InputRequest types text at the cursor.
type InputRequest struct {
	Text string `json:"text" example:"Compare @no" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *InputRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Required),
	)
}

// PasteRequest pastes text at the cursor. A URL starts a background fetch.
type PasteRequest struct {
	Text string `json:"text" example:"https://example.com/post" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *PasteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Required),
	)
}

// CursorRequest moves the cursor or, with Focus set, selects a range.
type CursorRequest struct {
	Anchor document.Position  `json:"anchor"`
	Focus  *document.Position `json:"focus,omitempty"`
}

// Validate implements validation.Validatable.
func (r *CursorRequest) Validate() error {
	if err := validatePosition(&r.Anchor); err != nil {
		return err
	}
	if r.Focus != nil {
		return validatePosition(r.Focus)
	}
	return nil
}

func validatePosition(p *document.Position) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Block, validation.Min(0)),
		validation.Field(&p.Offset, validation.Min(0)),
	)
}

// Range returns the requested selection.
func (r *CursorRequest) Range() document.Range {
	if r.Focus == nil {
		return document.Collapse(r.Anchor)
	}
	return document.Range{Anchor: r.Anchor, Focus: *r.Focus}
}

// DocumentRequest replaces the document with parsed prompt markup.
type DocumentRequest struct {
	Markup string `json:"markup" example:"Summarize [[notes.md]]"`
}

// Validate implements validation.Validatable.
func (r *DocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Markup, validation.Length(0, maxJSONBody)),
	)
}

// DocumentResponse is the document in its three textual forms.
type DocumentResponse struct {
	Markup   string            `json:"markup" example:"Summarize [[notes.md]]"`
	Text     string            `json:"text" example:"Summarize [@notes.md]"`
	Document document.Document `json:"document"`
}

// AddAttachmentRequest adds a text attachment, or fetches URL when set.
type AddAttachmentRequest struct {
	FileName string `json:"file_name" example:"notes.md"`
	Content  string `json:"content" example:"meeting notes"`
	URL      string `json:"url,omitempty" example:"https://example.com/post"`
}

// Validate implements validation.Validatable.
func (r *AddAttachmentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.URL, is.URL),
		validation.Field(&r.FileName, validation.When(r.URL == "", validation.Required)),
	)
}

// AttachmentListResponse wraps a session's attachments in store order.
type AttachmentListResponse struct {
	Attachments []models.Attachment `json:"attachments" validate:"required"`
}

// PreviewResponse is an attachment rendered for display.
type PreviewResponse struct {
	ID       string `json:"id" validate:"required"`
	FileName string `json:"file_name" example:"notes.md" validate:"required"`
	HTML     string `json:"html" example:"<p>meeting notes</p>"`
}

// PasteResponse reports what a paste inserted alongside the new state.
type PasteResponse struct {
	Outcome paste.Outcome `json:"outcome"`
	State   SessionState  `json:"state"`
}

// ConfirmResponse reports whether a suggestion was inserted.
type ConfirmResponse struct {
	Inserted bool         `json:"inserted"`
	State    SessionState `json:"state"`
}

// UndoResponse reports whether an edit was reverted.
type UndoResponse struct {
	Undone bool         `json:"undone"`
	State  SessionState `json:"state"`
}

// ExportRecordDTO is one history entry; Content is filled for single lookups.
type ExportRecordDTO struct {
	models.ExportRecord
	Content string `json:"content,omitempty"`
}

// ExportListResponse wraps paginated export history.
type ExportListResponse struct {
	Exports []models.ExportRecord `json:"exports" validate:"required"`
	Total   int                   `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps export search results.
type SearchResponse struct {
	Results []history.SearchResult `json:"results" validate:"required"`
}
