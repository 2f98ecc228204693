// Package models defines the domain types for PromptCraft.
package models

import "time"

// AttachmentSource records how an attachment entered the store.
type AttachmentSource string

const (
	SourceUpload AttachmentSource = "upload"
	SourceURL    AttachmentSource = "url"
	SourceInbox  AttachmentSource = "inbox"
	SourceManual AttachmentSource = "manual"
)

// Attachment is a named text blob available for mention binding.
// Mentions reference it by FileName, never by ID.
type Attachment struct {
	ID        string           `json:"id"`
	FileName  string           `json:"file_name"`
	Content   string           `json:"content"`
	Source    AttachmentSource `json:"source"`
	URL       string           `json:"url,omitempty"`
	Failed    bool             `json:"failed,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ExportRecord describes one delivered export.
type ExportRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	FileName  string    `json:"file_name"`
	Target    string    `json:"target"` // "clipboard", "download" or "file"
	Checksum  string    `json:"checksum"`
	Size      int       `json:"size"`
	Content   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
