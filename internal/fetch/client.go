package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/promptcraft/internal/apperr"
)

// DefaultEndpoint is the local scrape service address.
const DefaultEndpoint = "http://localhost:3000"

const maxResponseBytes = 20 << 20

// Fetcher turns a URL into Markdown.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Client calls GET {Endpoint}/scrape?url=<encoded url> and expects
// {"markdown": "..."}.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a scrape client. A nil httpClient uses a client with no
// overall timeout; the transport's own dial and TLS timeouts apply.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

type scrapeResponse struct {
	Markdown string `json:"markdown"`
}

// Fetch asks the scrape service for rawURL's Markdown.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	reqURL := c.endpoint + "/scrape?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w: %v", rawURL, apperr.ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: %w: %s", rawURL, apperr.ErrFetch, resp.Status)
	}

	var out scrapeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("fetch %s: %w: decode: %v", rawURL, apperr.ErrFetch, err)
	}
	return out.Markdown, nil
}

// Fallback is the placeholder document stored when a fetch fails. It never
// contains the raw error text.
func Fallback(rawURL string, fetchedAt time.Time) string {
	domain := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		domain = strings.Replace(u.Hostname(), "www.", "", 1)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Content from %s\n\n", domain)
	sb.WriteString("## Metadata\n")
	fmt.Fprintf(&sb, "- Source: %s\n", rawURL)
	fmt.Fprintf(&sb, "- Fetched: %s\n", fetchedAt.UTC().Format(time.RFC3339))
	sb.WriteString("- Status: Error (scrape service unavailable)\n\n")
	sb.WriteString("## Content\n")
	sb.WriteString("Failed to fetch content. Please ensure the scrape service is running:\n\n")
	sb.WriteString("1. Enable it with `scraper.enabled: true` in the config file\n")
	sb.WriteString("2. Start the service: `promptcraft serve`\n\n")
	sb.WriteString("### Raw URL\n```\n")
	sb.WriteString(rawURL)
	sb.WriteString("\n```\n")
	return sb.String()
}
