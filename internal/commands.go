package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/promptcraft/internal/export"
	"github.com/starford/promptcraft/internal/mcpserver"
	"github.com/starford/promptcraft/internal/render"
	"github.com/starford/promptcraft/internal/storage"
	"github.com/starford/promptcraft/internal/workspace"
)

// cliSessionID tags exports made from the command line in the history.
const cliSessionID = "cli"

// AssembleOptions select the input and delivery of one assembly.
type AssembleOptions struct {
	File   string
	Attach []string
	// Out writes the prompt to a file. Empty falls back to the markup's
	// output field, then to Stdout.
	Out       string
	Clipboard bool
	// Items joins File and Attach as standalone items instead of parsing
	// File as markup.
	Items  bool
	Stdout io.Writer
}

// assembleText produces the prompt text for opts. The returned output name
// comes from frontmatter when opts.Out is empty.
func assembleText(ctx context.Context, svc *services, opts AssembleOptions) (text, out string, err error) {
	if opts.Items {
		text, err = workspace.JoinFiles("", append([]string{opts.File}, opts.Attach...))
		return text, opts.Out, err
	}
	markup, err := os.ReadFile(opts.File)
	if err != nil {
		return "", "", fmt.Errorf("read prompt: %w", err)
	}
	res, err := svc.ws.Assemble(ctx, workspace.AssembleInput{
		Markup:  markup,
		BaseDir: filepath.Dir(opts.File),
		Attach:  opts.Attach,
	})
	if err != nil {
		return "", "", err
	}
	for _, u := range res.Failed {
		svc.logger.Warn("fetch failed, placeholder used", slog.String("url", u))
	}
	out = opts.Out
	if out == "" {
		out = res.Parsed.Frontmatter.Output
	}
	return res.Text, out, nil
}

// Assemble resolves a prompt file and delivers it to a file, the
// clipboard, or stdout.
func Assemble(ctx context.Context, opts AssembleOptions, options ...Option) error {
	app, err := newApplication(options)
	if err != nil {
		return err
	}
	logger := app.newLogger(os.Stderr)
	svc, err := app.build(logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	text, out, err := assembleText(ctx, svc, opts)
	if err != nil {
		return err
	}

	exp := svc.ws.Exporter()
	delivered := false
	if out != "" {
		files, err := storage.NewFS(filepath.Dir(out), true)
		if err != nil {
			return fmt.Errorf("open output dir: %w", err)
		}
		fileExp := &export.Exporter{Files: files, History: exp.History, Format: exp.Format, Logger: logger}
		rec, err := fileExp.WriteFile(cliSessionID, filepath.Base(out), text)
		if err != nil {
			return err
		}
		logger.Info("prompt written", slog.String("file", filepath.Join(files.Root(), rec.FileName)), slog.Int("bytes", rec.Size))
		delivered = true
	}
	if opts.Clipboard {
		if _, err := exp.Clipboard(ctx, cliSessionID, text); err != nil {
			return err
		}
		logger.Info("prompt copied to clipboard", slog.Int("bytes", len(text)))
		delivered = true
	}
	if !delivered {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := io.WriteString(w, text); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}
	}
	return nil
}

// PreviewOptions select the prompt file and terminal styling.
type PreviewOptions struct {
	File   string
	Attach []string
	Width  int
	// Style is a glamour style name or JSON path; empty picks one from
	// the terminal background.
	Style  string
	Stdout io.Writer
}

// Preview assembles a prompt file and renders it as Markdown for the
// terminal.
func Preview(ctx context.Context, opts PreviewOptions, options ...Option) error {
	app, err := newApplication(options)
	if err != nil {
		return err
	}
	svc, err := app.build(app.newLogger(os.Stderr), nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	text, _, err := assembleText(ctx, svc, AssembleOptions{File: opts.File, Attach: opts.Attach})
	if err != nil {
		return err
	}
	out, err := render.Terminal(text, opts.Width, opts.Style)
	if err != nil {
		return err
	}
	w := opts.Stdout
	if w == nil {
		w = os.Stdout
	}
	_, err = io.WriteString(w, out)
	return err
}

// ServeMCP runs the MCP tool server on stdin/stdout. Relative attachment
// paths in assembled markup resolve against baseDir.
func ServeMCP(_ context.Context, baseDir string, options ...Option) error {
	app, err := newApplication(options)
	if err != nil {
		return err
	}
	logger := app.newLogger(os.Stderr)
	slog.SetDefault(logger)
	svc, err := app.build(logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("MCP server starting on stdio", slog.String("base_dir", baseDir))
	return mcpserver.New(svc.ws, baseDir).ServeStdio()
}
