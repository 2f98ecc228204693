// Package paste turns pasted text into either a URL mention backed by an
// asynchronous fetch or plain text blocks.
package paste

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/fetch"
	"github.com/starford/promptcraft/internal/models"
)

// Result reports the completion of one background fetch.
type Result struct {
	URL        string
	Attachment models.Attachment
	Err        error
}

// Outcome describes what a paste inserted.
type Outcome struct {
	URL      string `json:"url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Pending  bool   `json:"pending"`
}

// Handler inserts pasted content into an editor. Fetches run detached from
// the caller's context and are never retried.
type Handler struct {
	fetcher  fetch.Fetcher
	store    *attachment.Store
	logger   *slog.Logger
	onResult func(Result)
	now      func() time.Time

	wg sync.WaitGroup
}

// NewHandler creates a paste handler. onResult may be nil.
func NewHandler(f fetch.Fetcher, store *attachment.Store, logger *slog.Logger, onResult func(Result)) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		fetcher:  f,
		store:    store,
		logger:   logger,
		onResult: onResult,
		now:      time.Now,
	}
}

// Paste inserts text at the editor's cursor. If text contains a URL a
// URLMention is inserted and its content fetched in the background;
// otherwise each line becomes plain text.
func (h *Handler) Paste(ctx context.Context, ed document.DocumentEditor, text string) (Outcome, error) {
	rawURL, ok := fetch.FindURL(text)
	if !ok {
		if err := document.InsertText(ed, text); err != nil {
			return Outcome{}, fmt.Errorf("paste: insert text: %w", err)
		}
		return Outcome{}, nil
	}

	name, err := fetch.FilenameFromURL(rawURL)
	if err != nil {
		// Not a usable URL after all: keep the text as typed.
		if err := document.InsertText(ed, text); err != nil {
			return Outcome{}, fmt.Errorf("paste: insert text: %w", err)
		}
		return Outcome{}, nil
	}

	sel := ed.CurrentSelection()
	var ops []document.EditOp
	if !sel.Collapsed() {
		ops = append(ops, document.Delete{Range: sel})
	}
	ops = append(ops, document.InsertNode{
		At:   sel.Start(),
		Node: document.URLMention{URL: rawURL, FileName: name},
	})
	if err := ed.ApplyEdit(ops...); err != nil {
		return Outcome{}, fmt.Errorf("paste: insert url mention: %w", err)
	}

	h.wg.Add(1)
	go h.resolve(context.WithoutCancel(ctx), rawURL, name)

	return Outcome{URL: rawURL, FileName: name, Pending: true}, nil
}

// resolve fetches rawURL in the background and appends exactly one
// attachment for it.
func (h *Handler) resolve(ctx context.Context, rawURL, name string) {
	defer h.wg.Done()

	a, err := FetchAttachment(ctx, h.fetcher, rawURL, name, h.now())
	if err != nil {
		h.logger.Warn("paste: fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
	} else {
		h.logger.Debug("paste: fetched", slog.String("url", rawURL), slog.Int("bytes", len(a.Content)))
	}

	a = h.store.Add(a)
	if h.onResult != nil {
		h.onResult(Result{URL: rawURL, Attachment: a, Err: err})
	}
}

// FetchAttachment fetches rawURL into an attachment named name. On failure
// the attachment carries the fallback placeholder, is marked Failed, and
// the fetch error is returned alongside it.
func FetchAttachment(ctx context.Context, f fetch.Fetcher, rawURL, name string, now time.Time) (models.Attachment, error) {
	a := models.Attachment{
		FileName: name,
		Source:   models.SourceURL,
		URL:      rawURL,
	}
	md, err := f.Fetch(ctx, rawURL)
	if err != nil {
		a.Content = fetch.Fallback(rawURL, now)
		a.Failed = true
		return a, err
	}
	a.Content = md
	return a, nil
}

// Wait blocks until every started fetch has completed.
func (h *Handler) Wait() {
	h.wg.Wait()
}
