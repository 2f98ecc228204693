package internal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/promptcraft/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Export.Dir = filepath.Join(dir, "exports")
	cfg.Scraper.AllowLoopback = true
	return cfg
}

func testOptions(cfg *Config, pages map[string]string, clip *testutil.MemClipboard) []Option {
	return []Option{
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithFetcher(testutil.NewStubFetcher(pages)),
		WithClipboard(clip),
	}
}

func writePrompt(t *testing.T, dir, markup string) string {
	t.Helper()
	_ = os.WriteFile(filepath.Join(dir, "ctx.md"), []byte("CONTEXT"), 0o644)
	p := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(p, []byte(markup), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAssembleToStdout(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	file := writePrompt(t, dir, "---\nattachments: [ctx.md]\n---\nUse [[ctx.md]] and [[https://example.com/a]]\n")

	var out bytes.Buffer
	err := Assemble(context.Background(), AssembleOptions{File: file, Stdout: &out},
		testOptions(cfg, map[string]string{"https://example.com/a": "PAGE"}, &testutil.MemClipboard{})...)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "Use CONTEXT and PAGE" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestAssembleToFileAndClipboard(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	file := writePrompt(t, dir, "---\noutput: "+filepath.Join(dir, "final.txt")+"\n---\nX [[ctx.md]]\n")
	clip := &testutil.MemClipboard{}

	var out bytes.Buffer
	err := Assemble(context.Background(), AssembleOptions{
		File:      file,
		Attach:    []string{"ctx.md"},
		Clipboard: true,
		Stdout:    &out,
	}, testOptions(cfg, nil, clip)...)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "final.txt"))
	if err != nil || string(data) != "X CONTEXT" {
		t.Errorf("output file = %q, %v", data, err)
	}
	if clip.Text() != "X CONTEXT" {
		t.Errorf("clipboard = %q", clip.Text())
	}
	if out.Len() != 0 {
		t.Errorf("stdout should stay empty when delivered elsewhere: %q", out.String())
	}
}

func TestAssembleItems(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	_ = os.WriteFile(a, []byte("first"), 0o644)
	_ = os.WriteFile(b, []byte("second"), 0o644)

	var out bytes.Buffer
	err := Assemble(context.Background(), AssembleOptions{File: a, Attach: []string{b}, Items: true, Stdout: &out},
		testOptions(cfg, nil, &testutil.MemClipboard{})...)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "first\n\nsecond" {
		t.Errorf("items = %q", out.String())
	}
}

func TestAssembleRequiresConfig(t *testing.T) {
	if err := Assemble(context.Background(), AssembleOptions{}); err == nil {
		t.Error("expected error without config")
	}
}

func TestPreview(t *testing.T) {
	cfg := testConfig(t)
	file := writePrompt(t, t.TempDir(), "# Heading\n[[ctx.md]]\n")
	var out bytes.Buffer
	err := Preview(context.Background(), PreviewOptions{File: file, Attach: []string{"ctx.md"}, Width: 60, Style: "notty", Stdout: &out},
		testOptions(cfg, nil, &testutil.MemClipboard{})...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Heading") || !strings.Contains(out.String(), "CONTEXT") {
		t.Errorf("preview = %q", out.String())
	}
}

func TestRouterHealthAndScrape(t *testing.T) {
	cfg := testConfig(t)
	app, err := newApplication(testOptions(cfg, nil, &testutil.MemClipboard{}))
	if err != nil {
		t.Fatal(err)
	}
	svc, err := app.build(app.newLogger(io.Discard), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body><h1>Hi</h1></body></html>")
	}))
	defer page.Close()

	router := newRouter(cfg, svc)
	cases := []struct {
		path string
		want int
		body string
	}{
		{"/health/live", http.StatusOK, `"ok"`},
		{"/health/ready", http.StatusOK, `"ok"`},
		{"/scrape?url=" + page.URL, http.StatusOK, "# Hi"},
		{"/scrape", http.StatusBadRequest, "error"},
		{"/api/sessions/default", http.StatusOK, `"id":"default"`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.want || !strings.Contains(w.Body.String(), tc.body) {
			t.Errorf("GET %s = %d %s", tc.path, w.Code, w.Body.String())
		}
	}
}

func TestScraperDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.Enabled = false
	app, _ := newApplication(testOptions(cfg, nil, &testutil.MemClipboard{}))
	svc, err := app.build(app.newLogger(io.Discard), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	w := httptest.NewRecorder()
	newRouter(cfg, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scrape?url=https://example.com", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("scrape with scraper disabled = %d, want 404", w.Code)
	}
}
