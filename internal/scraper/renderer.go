package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the raw result of loading a URL.
type Page struct {
	Body        string
	ContentType string
	URL         string
}

// Renderer loads a URL and returns its content.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (Page, error)
}

// HTTPRenderer fetches pages with a plain GET. It does not run scripts.
type HTTPRenderer struct {
	Client   *http.Client
	MaxBytes int64
	// AllowLoopback disables the loopback part of the host guard.
	AllowLoopback bool
}

// NewHTTPRenderer builds an HTTPRenderer whose redirects are re-checked
// against the host guard.
func NewHTTPRenderer(timeout time.Duration, maxBytes int64, allowLoopback bool) *HTTPRenderer {
	r := &HTTPRenderer{MaxBytes: maxBytes, AllowLoopback: allowLoopback}
	r.Client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return CheckHost(req.URL.Hostname(), r.AllowLoopback)
		},
	}
	return r
}

// Render performs the GET request.
func (r *HTTPRenderer) Render(ctx context.Context, rawURL string) (Page, error) {
	u, err := checkURL(rawURL, r.AllowLoopback)
	if err != nil {
		return Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; promptcraft/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown,text/plain;q=0.9,*/*;q=0.8")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("scraper: get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("scraper: get %s: HTTP %d", rawURL, resp.StatusCode)
	}
	limit := r.MaxBytes
	if limit <= 0 {
		limit = 2 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Page{}, fmt.Errorf("scraper: read body: %w", err)
	}
	return Page{Body: string(body), ContentType: resp.Header.Get("Content-Type"), URL: resp.Request.URL.String()}, nil
}

// BrowserRenderer loads pages in headless Chromium so script-built
// content is present. Each render launches and tears down its own browser.
type BrowserRenderer struct {
	// Bin is the browser binary; empty lets rod find or download one.
	Bin     string
	Timeout time.Duration
	// Settle is how long to wait after the load event.
	Settle        time.Duration
	AllowLoopback bool
}

// Render returns the page's serialized DOM.
func (b *BrowserRenderer) Render(ctx context.Context, rawURL string) (Page, error) {
	u, err := checkURL(rawURL, b.AllowLoopback)
	if err != nil {
		return Page{}, err
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	l := launcher.New().Headless(true).Leakless(true).Context(ctx)
	if b.Bin != "" {
		l = l.Bin(b.Bin)
	}
	wsURL, err := l.Launch()
	if err != nil {
		return Page{}, fmt.Errorf("scraper: launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return Page{}, fmt.Errorf("scraper: connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: u.String()})
	if err != nil {
		return Page{}, fmt.Errorf("scraper: open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return Page{}, fmt.Errorf("scraper: wait load: %w", err)
	}
	if b.Settle > 0 {
		select {
		case <-time.After(b.Settle):
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	doc, err := page.HTML()
	if err != nil {
		return Page{}, fmt.Errorf("scraper: page html: %w", err)
	}
	final := u.String()
	if info, err := page.Info(); err == nil {
		final = info.URL
	}
	return Page{Body: doc, ContentType: "text/html", URL: final}, nil
}

func checkURL(rawURL string, allowLoopback bool) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scraper: unsupported scheme %q", u.Scheme)
	}
	if err := CheckHost(u.Hostname(), allowLoopback); err != nil {
		return nil, err
	}
	return u, nil
}

// CheckHost rejects cloud metadata addresses and, unless allowed,
// loopback addresses.
func CheckHost(host string, allowLoopback bool) error {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "metadata.google.internal" {
		return fmt.Errorf("scraper: blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let the client report DNS failures
		}
		ip = ips[0]
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) || ip.Equal(net.ParseIP("fd00:ec2::254")) {
		return fmt.Errorf("scraper: blocked host: cloud metadata address %s", host)
	}
	if ip.IsLoopback() && !allowLoopback {
		return fmt.Errorf("scraper: blocked host: loopback address %s", host)
	}
	return nil
}
