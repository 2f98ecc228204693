// Package export delivers serialized prompts to the clipboard, as a
// download, or as a file, and records each delivery.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/checksum"
	"github.com/starford/promptcraft/internal/history"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/storage"
)

// Export targets.
const (
	TargetClipboard = "clipboard"
	TargetDownload  = "download"
	TargetFile      = "file"
)

// DefaultBaseName is the download name used when none is given.
const DefaultBaseName = "assembled-prompt"

// Exporter delivers export text. Files and History are optional.
type Exporter struct {
	Clip    Clipboard
	Files   storage.Provider
	History history.Recorder
	// Format is the download extension without the dot: "txt" or "md".
	Format string
	Logger *slog.Logger
}

// FileName returns base with the configured extension. An empty base
// yields DefaultBaseName; an existing .txt or .md extension is kept.
func (e *Exporter) FileName(base string) string {
	base = strings.TrimSpace(filepath.Base(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = DefaultBaseName
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".md":
		return base
	}
	format := e.Format
	if format == "" {
		format = "txt"
	}
	return base + "." + format
}

// Clipboard copies text. On failure nothing is recorded and the error
// wraps apperr.ErrClipboard.
func (e *Exporter) Clipboard(_ context.Context, sessionID, text string) (models.ExportRecord, error) {
	clip := e.Clip
	if clip == nil {
		clip = NoClipboard{}
	}
	if err := clip.WriteAll(text); err != nil {
		if !errors.Is(err, apperr.ErrClipboard) {
			err = fmt.Errorf("%w: %v", apperr.ErrClipboard, err)
		}
		return models.ExportRecord{}, fmt.Errorf("export: clipboard: %w", err)
	}
	return e.record(models.ExportRecord{SessionID: sessionID, Target: TargetClipboard, Content: text}), nil
}

// Download streams text to w as an attachment named after base. Nothing is
// retained once the response is written.
func (e *Exporter) Download(w http.ResponseWriter, sessionID, base, text string) (models.ExportRecord, error) {
	name := e.FileName(base)
	ctype := "text/plain; charset=utf-8"
	if strings.HasSuffix(strings.ToLower(name), ".md") {
		ctype = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	w.Header().Set("ETag", checksum.ETag(text))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, text); err != nil {
		return models.ExportRecord{}, fmt.Errorf("export: download: %w", err)
	}
	return e.record(models.ExportRecord{SessionID: sessionID, FileName: name, Target: TargetDownload, Content: text}), nil
}

// WriteFile writes text atomically into the export directory.
func (e *Exporter) WriteFile(sessionID, base, text string) (models.ExportRecord, error) {
	if e.Files == nil {
		return models.ExportRecord{}, fmt.Errorf("export: no export directory configured: %w", apperr.ErrInvalidInput)
	}
	name := e.FileName(base)
	if err := e.Files.Write(name, []byte(text)); err != nil {
		return models.ExportRecord{}, fmt.Errorf("export: write file: %w", err)
	}
	return e.record(models.ExportRecord{SessionID: sessionID, FileName: name, Target: TargetFile, Content: text}), nil
}

// record stores r in the history. A history failure is logged and does not
// fail the export, which has already been delivered.
func (e *Exporter) record(r models.ExportRecord) models.ExportRecord {
	r.CreatedAt = time.Now().UTC()
	r.Checksum = checksum.String(r.Content)
	r.Size = len(r.Content)
	if e.History != nil {
		saved, err := e.History.Record(r)
		if err != nil {
			e.logger().Warn("export: record history",
				slog.String("target", r.Target),
				slog.String("error", err.Error()))
		} else {
			r = saved
		}
	}
	return r
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
