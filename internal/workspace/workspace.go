// Package workspace coordinates editing sessions with fetching, exports,
// history and notifications.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/composer"
	"github.com/starford/promptcraft/internal/export"
	"github.com/starford/promptcraft/internal/fetch"
	"github.com/starford/promptcraft/internal/history"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/paste"
	"github.com/starford/promptcraft/internal/sse"
)

// DefaultSessionID names the session that always exists. Inbox files are
// ingested into it.
const DefaultSessionID = "default"

// Options configure a Workspace. Broker and History may be nil.
type Options struct {
	Fetcher  fetch.Fetcher
	Exporter *export.Exporter
	History  history.Recorder
	Broker   *sse.Broker
	Logger   *slog.Logger
}

// Workspace is the service layer shared by the REST API, the MCP server
// and the CLI.
type Workspace struct {
	fetcher  fetch.Fetcher
	exporter *export.Exporter
	history  history.Recorder
	broker   *sse.Broker
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*composer.Session
	inboxIDs map[string]string // inbox path -> attachment ID in the default session
}

// New creates a workspace with the default session.
func New(opts Options) *Workspace {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Exporter == nil {
		opts.Exporter = &export.Exporter{History: opts.History, Logger: opts.Logger}
	}
	w := &Workspace{
		fetcher:  opts.Fetcher,
		exporter: opts.Exporter,
		history:  opts.History,
		broker:   opts.Broker,
		logger:   opts.Logger,
		sessions: make(map[string]*composer.Session),
		inboxIDs: make(map[string]string),
	}
	w.sessions[DefaultSessionID] = w.newSession(DefaultSessionID)
	return w
}

func (w *Workspace) newSession(id string) *composer.Session {
	return composer.New(id, composer.Options{
		Fetcher: w.fetcher,
		Logger:  w.logger,
		OnFetch: func(r paste.Result) { w.onFetch(id, r) },
	})
}

func (w *Workspace) onFetch(sessionID string, r paste.Result) {
	kind := sse.TypeAttachmentAdded
	if r.Err != nil {
		kind = sse.TypeFetchFailed
	}
	w.publishAttachment(kind, sessionID, r.Attachment)
}

func (w *Workspace) publishAttachment(kind, sessionID string, a models.Attachment) {
	if w.broker == nil {
		return
	}
	w.broker.PublishAttachmentEvent(kind, sse.AttachmentEvent{
		SessionID:    sessionID,
		AttachmentID: a.ID,
		FileName:     a.FileName,
	})
}

func (w *Workspace) publish(typ string, data any) {
	if w.broker != nil {
		w.broker.Publish(sse.Event{Type: typ, Data: data})
	}
}

// CreateSession starts a new empty session.
func (w *Workspace) CreateSession() *composer.Session {
	id := uuid.NewString()
	s := w.newSession(id)
	w.mu.Lock()
	w.sessions[id] = s
	w.mu.Unlock()
	w.publish(sse.TypeSessionCreated, map[string]string{"session_id": id})
	return s
}

// Session returns the session with id.
func (w *Workspace) Session(id string) (*composer.Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("workspace: session %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// Sessions lists all sessions, oldest first.
func (w *Workspace) Sessions() []*composer.Session {
	w.mu.RLock()
	out := make([]*composer.Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DeleteSession removes a session after its pending fetches finish. The
// default session cannot be deleted.
func (w *Workspace) DeleteSession(id string) error {
	if id == DefaultSessionID {
		return fmt.Errorf("workspace: default session: %w", apperr.ErrConflict)
	}
	w.mu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("workspace: session %s: %w", id, apperr.ErrNotFound)
	}
	s.Close()
	w.publish(sse.TypeSessionDeleted, map[string]string{"session_id": id})
	return nil
}

// Upload validates an uploaded file and appends it to the session's store.
func (w *Workspace) Upload(sessionID, name string, data []byte) (models.Attachment, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.Attachment{}, err
	}
	a, err := attachment.FromUpload(name, data, models.SourceUpload)
	if err != nil {
		return models.Attachment{}, err
	}
	a = s.Attach(a)
	w.publishAttachment(sse.TypeAttachmentAdded, sessionID, a)
	return a, nil
}

// AddText appends an attachment with the given name and content.
func (w *Workspace) AddText(sessionID, name, content string) (models.Attachment, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.Attachment{}, err
	}
	if name == "" {
		return models.Attachment{}, fmt.Errorf("workspace: file name required: %w", apperr.ErrInvalidInput)
	}
	a := s.Attach(models.Attachment{FileName: name, Content: content, Source: models.SourceManual})
	w.publishAttachment(sse.TypeAttachmentAdded, sessionID, a)
	return a, nil
}

// AddURL fetches rawURL synchronously and appends the result, or the
// fallback placeholder when the fetch fails. The document is unchanged.
func (w *Workspace) AddURL(ctx context.Context, sessionID, rawURL string) (models.Attachment, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.Attachment{}, err
	}
	name, err := fetch.FilenameFromURL(rawURL)
	if err != nil {
		return models.Attachment{}, err
	}
	a, fetchErr := paste.FetchAttachment(ctx, w.fetcher, rawURL, name, time.Now())
	a = s.Attach(a)
	kind := sse.TypeAttachmentAdded
	if fetchErr != nil {
		kind = sse.TypeFetchFailed
		w.logger.Warn("workspace: fetch failed", slog.String("url", rawURL), slog.String("error", fetchErr.Error()))
	}
	w.publishAttachment(kind, sessionID, a)
	return a, nil
}

// RemoveAttachment detaches an attachment. Mentions of it remain and
// display as missing.
func (w *Workspace) RemoveAttachment(sessionID, id string) (models.Attachment, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.Attachment{}, err
	}
	a, err := s.Detach(id)
	if err != nil {
		return models.Attachment{}, err
	}
	w.publishAttachment(sse.TypeAttachmentRemoved, sessionID, a)
	return a, nil
}

// Ingest implements inbox.Sink. A changed file replaces its previous
// attachment in the default session.
func (w *Workspace) Ingest(path string, a models.Attachment) {
	s, err := w.Session(DefaultSessionID)
	if err != nil {
		return
	}
	w.mu.Lock()
	prev, had := w.inboxIDs[path]
	w.mu.Unlock()
	if had {
		if old, err := s.Detach(prev); err == nil {
			w.publishAttachment(sse.TypeAttachmentRemoved, DefaultSessionID, old)
		}
	}
	a = s.Attach(a)
	w.mu.Lock()
	w.inboxIDs[path] = a.ID
	w.mu.Unlock()
	w.publishAttachment(sse.TypeAttachmentAdded, DefaultSessionID, a)
}

// Forget implements inbox.Sink.
func (w *Workspace) Forget(path string) {
	w.mu.Lock()
	id, ok := w.inboxIDs[path]
	delete(w.inboxIDs, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	if _, err := w.RemoveAttachment(DefaultSessionID, id); err != nil {
		w.logger.Debug("workspace: inbox attachment already gone", slog.String("path", path))
	}
}

// ExportClipboard serializes the session and copies it to the clipboard.
func (w *Workspace) ExportClipboard(ctx context.Context, sessionID string) (models.ExportRecord, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.ExportRecord{}, err
	}
	rec, err := w.exporter.Clipboard(ctx, sessionID, s.Serialize())
	if err != nil {
		return rec, err
	}
	w.publish(sse.TypeExportCompleted, rec)
	return rec, nil
}

// ExportDownload serializes the session and streams it to rw.
func (w *Workspace) ExportDownload(rw http.ResponseWriter, sessionID, name string) (models.ExportRecord, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.ExportRecord{}, err
	}
	rec, err := w.exporter.Download(rw, sessionID, name, s.Serialize())
	if err != nil {
		return rec, err
	}
	w.publish(sse.TypeExportCompleted, rec)
	return rec, nil
}

// ExportFile serializes the session into the export directory.
func (w *Workspace) ExportFile(sessionID, name string) (models.ExportRecord, error) {
	s, err := w.Session(sessionID)
	if err != nil {
		return models.ExportRecord{}, err
	}
	rec, err := w.exporter.WriteFile(sessionID, name, s.Serialize())
	if err != nil {
		return rec, err
	}
	w.publish(sse.TypeExportCompleted, rec)
	return rec, nil
}

// Exports lists export history newest first.
func (w *Workspace) Exports(limit, offset int, sessionID string) ([]models.ExportRecord, int, error) {
	if w.history == nil {
		return []models.ExportRecord{}, 0, nil
	}
	return w.history.List(limit, offset, sessionID)
}

// Export returns one history record with its content.
func (w *Workspace) Export(id int64) (models.ExportRecord, error) {
	if w.history == nil {
		return models.ExportRecord{}, fmt.Errorf("workspace: export %d: %w", id, apperr.ErrNotFound)
	}
	return w.history.Get(id)
}

// SearchExports searches past export content.
func (w *Workspace) SearchExports(query string, limit int) ([]history.SearchResult, error) {
	if w.history == nil {
		return []history.SearchResult{}, nil
	}
	return w.history.Search(query, limit)
}

// Exporter returns the workspace's exporter.
func (w *Workspace) Exporter() *export.Exporter { return w.exporter }

// Wait blocks until every session's pending fetches have completed.
func (w *Workspace) Wait() {
	for _, s := range w.Sessions() {
		s.Wait()
	}
}
