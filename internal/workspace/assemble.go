package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/composer"
	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/fetch"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/parser"
	"github.com/starford/promptcraft/internal/paste"
	"github.com/starford/promptcraft/internal/serialize"
)

// AssembleInput is a prompt file plus extra attachment sources.
type AssembleInput struct {
	Markup []byte
	// BaseDir resolves relative attachment paths.
	BaseDir string
	// Attach lists file paths or URLs loaded after the frontmatter ones.
	Attach []string
	// Inline adds attachments that are already in memory.
	Inline []models.Attachment
}

// Assembly is the outcome of assembling a prompt file.
type Assembly struct {
	Session *composer.Session
	Parsed  *parser.Result
	Text    string
	// Failed lists URLs whose fetch failed and were replaced by the
	// fallback placeholder.
	Failed []string
}

// Assemble builds a throwaway session from markup, loads its attachments
// (frontmatter, extra sources, then any URL mention still unresolved),
// and serializes it. The session is not registered in the workspace.
func (w *Workspace) Assemble(ctx context.Context, in AssembleInput) (*Assembly, error) {
	res, err := parser.Parse(in.Markup)
	if err != nil {
		return nil, fmt.Errorf("workspace: parse markup: %w", err)
	}
	s := composer.New("assemble", composer.Options{Fetcher: w.fetcher, Logger: w.logger})
	out := &Assembly{Session: s, Parsed: res}

	sources := append(append([]string{}, res.Frontmatter.Attachments...), in.Attach...)
	for _, src := range sources {
		a, failed, err := w.load(ctx, in.BaseDir, src)
		if err != nil {
			return nil, err
		}
		if failed {
			out.Failed = append(out.Failed, src)
		}
		s.Attach(a)
	}
	for _, a := range in.Inline {
		s.Attach(a)
	}

	s.SetDocument(res.Document)

	snap := s.Store().Snapshot()
	for _, n := range res.Document.Mentions() {
		u, ok := n.(document.URLMention)
		if !ok || snap.Exists(u.FileName) {
			continue
		}
		a, err := paste.FetchAttachment(ctx, w.fetcher, u.URL, u.FileName, time.Now())
		if err != nil {
			out.Failed = append(out.Failed, u.URL)
		}
		s.Attach(a)
		snap = s.Store().Snapshot()
	}

	out.Text = s.Serialize()
	return out, nil
}

// load reads one attachment source: a URL is fetched, anything else is a
// file path. failed reports a URL that fell back to the placeholder.
func (w *Workspace) load(ctx context.Context, baseDir, src string) (models.Attachment, bool, error) {
	if u, ok := fetch.FindURL(src); ok && u == src {
		name, err := fetch.FilenameFromURL(u)
		if err != nil {
			return models.Attachment{}, false, err
		}
		a, err := paste.FetchAttachment(ctx, w.fetcher, u, name, time.Now())
		return a, err != nil, nil
	}
	p := src
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return models.Attachment{}, false, fmt.Errorf("workspace: read attachment %s: %w", src, err)
	}
	a, err := attachment.FromUpload(p, data, models.SourceManual)
	return a, false, err
}

// JoinFiles reads each path and joins the contents as separate items.
func JoinFiles(baseDir string, paths []string) (string, error) {
	items := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("workspace: read item %s: %w", p, err)
		}
		items = append(items, string(data))
	}
	return serialize.JoinItems(items), nil
}
