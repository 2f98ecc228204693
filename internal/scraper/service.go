// Package scraper serves GET /scrape, turning a web page into Markdown.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNoContent means every attempt loaded the page but produced no text.
var ErrNoContent = errors.New("failed to extract content after multiple attempts")

// Service retries a renderer and converts the result to Markdown.
type Service struct {
	renderer   Renderer
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewService creates a scrape service. attempts below 1 means one attempt.
func NewService(r Renderer, attempts int, retryDelay time.Duration, logger *slog.Logger) *Service {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{renderer: r, attempts: attempts, retryDelay: retryDelay, logger: logger}
}

// Scrape returns the Markdown for rawURL. A render error on the last
// attempt is returned as is; empty output on every attempt yields
// ErrNoContent.
func (s *Service) Scrape(ctx context.Context, rawURL string) (string, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		s.logger.Info("scrape: attempt", slog.String("url", rawURL), slog.Int("attempt", attempt))
		md, err := s.once(ctx, rawURL)
		switch {
		case err != nil:
			s.logger.Error("scrape: attempt failed",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			if attempt == s.attempts {
				return "", err
			}
		case md != "":
			s.logger.Info("scrape: markdown generated", slog.String("url", rawURL), slog.Int("length", len(md)))
			return md, nil
		default:
			s.logger.Warn("scrape: empty result", slog.String("url", rawURL), slog.Int("attempt", attempt))
		}
		if attempt < s.attempts {
			if err := sleep(ctx, s.retryDelay); err != nil {
				return "", err
			}
		}
	}
	return "", ErrNoContent
}

func (s *Service) once(ctx context.Context, rawURL string) (string, error) {
	page, err := s.renderer.Render(ctx, rawURL)
	if err != nil {
		return "", err
	}
	ct := strings.ToLower(page.ContentType)
	if strings.Contains(ct, "text/plain") || strings.Contains(ct, "text/markdown") {
		return strings.TrimSpace(page.Body), nil
	}
	base := page.URL
	if base == "" {
		base = rawURL
	}
	return ToMarkdown(page.Body, base)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type scrapeResponse struct {
	Markdown string `json:"markdown"`
}

// ServeHTTP handles GET /scrape?url=.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	md, err := s.Scrape(r.Context(), rawURL)
	switch {
	case errors.Is(err, ErrNoContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, scrapeResponse{Markdown: md})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("scrape: encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
