// Package inbox watches a directory and turns dropped text files into
// attachments.
package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/checksum"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/storage"
)

// Sink receives inbox changes. path is relative to the inbox root.
type Sink interface {
	// Ingest is called for a new file or a file whose content changed.
	Ingest(path string, a models.Attachment)
	// Forget is called when a previously ingested file disappears.
	Forget(path string)
}

// Inbox tracks which files have been ingested. Sync and Watch must run on
// the same goroutine.
type Inbox struct {
	files    *storage.FS
	sink     Sink
	logger   *slog.Logger
	debounce time.Duration

	seen map[string]string // path -> checksum
}

// New creates an inbox over files.
func New(files *storage.FS, sink Sink, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		files:    files,
		sink:     sink,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		seen:     make(map[string]string),
	}
}

// Sync brings the sink up to date with the directory:
//   - new or changed files are ingested
//   - files gone from disk are forgotten
func (in *Inbox) Sync() error {
	metas, err := in.files.List("", attachment.Accepts)
	if err != nil {
		return err
	}
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if in.seen[m.Path] == m.Checksum {
			continue
		}
		in.ingest(m.Path)
	}
	for p := range in.seen {
		if _, ok := disk[p]; !ok {
			in.forget(p)
		}
	}
	return nil
}

func (in *Inbox) ingest(rel string) {
	data, err := in.files.Read(rel)
	if err != nil {
		in.logger.Warn("inbox: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	cs := checksum.Sum(data)
	if in.seen[rel] == cs {
		return
	}
	a, err := attachment.FromUpload(rel, data, models.SourceInbox)
	if err != nil {
		in.logger.Warn("inbox: rejected", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	in.seen[rel] = cs
	in.logger.Debug("inbox: ingested", slog.String("path", rel), slog.Int("bytes", len(data)))
	in.sink.Ingest(rel, a)
}

func (in *Inbox) forget(rel string) {
	if _, ok := in.seen[rel]; !ok {
		return
	}
	delete(in.seen, rel)
	in.logger.Debug("inbox: forgotten", slog.String("path", rel))
	in.sink.Forget(rel)
}

// Watch processes file events until ctx is cancelled. New subdirectories
// are watched as they appear. Renames trigger a debounced Sync so the new
// name is picked up even when no Create event follows.
func (in *Inbox) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := in.files.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	in.logger.Info("inbox: watching", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(in.debounce)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(in.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			in.logger.Info("inbox: stopped")
			return nil

		case <-reconcileCh:
			if err := in.Sync(); err != nil {
				in.logger.Warn("inbox: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						in.logger.Warn("inbox: add dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}
			base := filepath.Base(ev.Name)
			if strings.HasPrefix(base, ".") || !attachment.Accepts(base) {
				continue
			}
			rel, relErr := in.files.Rel(ev.Name)
			if relErr != nil {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				in.ingest(rel)
			case ev.Op&fsnotify.Remove != 0:
				in.forget(rel)
			case ev.Op&fsnotify.Rename != 0:
				in.forget(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
