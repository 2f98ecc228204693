package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestToMarkdown(t *testing.T) {
	src := `<html><head><title>Docs</title><style>x{}</style></head>
<body><nav>menu</nav><h2>Install</h2><p>Run <code>make</code> then <strong>enjoy</strong>.</p>
<ul><li>one</li><li>two</li></ul>
<p>See <a href="/guide">the guide</a>.</p>
<pre>line 1
  line 2</pre><script>alert(1)</script></body></html>`
	md, err := ToMarkdown(src, "https://example.com/docs/")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"# Docs",
		"## Install",
		"`make`",
		"**enjoy**",
		"- one",
		"- two",
		"[the guide](https://example.com/guide)",
		"```\nline 1\n  line 2\n```",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	for _, banned := range []string{"menu", "alert", "x{}"} {
		if strings.Contains(md, banned) {
			t.Errorf("markdown contains %q:\n%s", banned, md)
		}
	}
	if strings.Contains(md, "\n\n\n") {
		t.Errorf("markdown has runs of blank lines:\n%s", md)
	}
}

type fakeRenderer struct {
	calls atomic.Int32
	pages []Page
	errs  []error
}

func (f *fakeRenderer) Render(context.Context, string) (Page, error) {
	i := int(f.calls.Add(1)) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return Page{}, f.errs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return Page{}, nil
}

func TestScrapeRetriesEmptyThenSucceeds(t *testing.T) {
	r := &fakeRenderer{pages: []Page{
		{Body: "<html><body></body></html>", ContentType: "text/html"},
		{Body: "<p>hello</p>", ContentType: "text/html"},
	}}
	s := NewService(r, 3, time.Millisecond, nil)
	md, err := s.Scrape(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if md != "hello" || r.calls.Load() != 2 {
		t.Errorf("md=%q calls=%d", md, r.calls.Load())
	}
}

func TestScrapeNoContentAfterAllAttempts(t *testing.T) {
	r := &fakeRenderer{}
	s := NewService(r, 3, time.Millisecond, nil)
	_, err := s.Scrape(context.Background(), "https://example.com")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v", err)
	}
	if r.calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", r.calls.Load())
	}
}

func TestScrapeErrorOnLastAttempt(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeRenderer{errs: []error{boom, boom}}
	s := NewService(r, 2, time.Millisecond, nil)
	if _, err := s.Scrape(context.Background(), "https://example.com"); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestScrapePlainTextPassesThrough(t *testing.T) {
	r := &fakeRenderer{pages: []Page{{Body: "  # raw md\n", ContentType: "text/markdown"}}}
	s := NewService(r, 1, 0, nil)
	md, _ := s.Scrape(context.Background(), "https://example.com/readme.md")
	if md != "# raw md" {
		t.Errorf("md = %q", md)
	}
}

func TestServeHTTPStatuses(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		r      *fakeRenderer
		status int
	}{
		{"ok", "?url=https://x.io", &fakeRenderer{pages: []Page{{Body: "<p>hi</p>", ContentType: "text/html"}}}, http.StatusOK},
		{"missing url", "", &fakeRenderer{}, http.StatusBadRequest},
		{"no content", "?url=https://x.io", &fakeRenderer{}, http.StatusBadRequest},
		{"error", "?url=https://x.io", &fakeRenderer{errs: []error{errors.New("down")}}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(tc.r, 1, 0, nil)
			w := httptest.NewRecorder()
			s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scrape"+tc.query, nil))
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.status, w.Body.String())
			}
			if tc.status == http.StatusOK {
				var body scrapeResponse
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Markdown != "hi" {
					t.Errorf("body = %+v, %v", body, err)
				}
			}
		})
	}
}

func TestHTTPRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Served</h1>"))
	}))
	defer srv.Close()

	r := NewHTTPRenderer(5*time.Second, 1<<20, true)
	page, err := r.Render(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(page.Body, "Served") || !strings.HasPrefix(page.ContentType, "text/html") {
		t.Errorf("page = %+v", page)
	}
	if _, err := r.Render(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}

	guarded := NewHTTPRenderer(time.Second, 0, false)
	if _, err := guarded.Render(context.Background(), srv.URL); err == nil {
		t.Error("loopback should be blocked without AllowLoopback")
	}
}

func TestCheckHost(t *testing.T) {
	cases := []struct {
		host    string
		loop    bool
		blocked bool
	}{
		{"169.254.169.254", true, true},
		{"metadata.google.internal", true, true},
		{"127.0.0.1", false, true},
		{"127.0.0.1", true, false},
		{"93.184.216.34", false, false},
	}
	for _, tc := range cases {
		err := CheckHost(tc.host, tc.loop)
		if (err != nil) != tc.blocked {
			t.Errorf("CheckHost(%q, %v) = %v, blocked want %v", tc.host, tc.loop, err, tc.blocked)
		}
	}
}

func TestUnsupportedScheme(t *testing.T) {
	r := NewHTTPRenderer(time.Second, 0, true)
	if _, err := r.Render(context.Background(), "file:///etc/passwd"); err == nil {
		t.Error("file scheme should be rejected")
	}
}
