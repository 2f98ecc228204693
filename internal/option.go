package internal

import (
	"log/slog"

	"github.com/starford/promptcraft/internal/export"
	"github.com/starford/promptcraft/internal/fetch"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	fetcher   fetch.Fetcher
	clipboard export.Clipboard
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON stdout logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithFetcher replaces the scrape client used for URL attachments.
func WithFetcher(f fetch.Fetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c export.Clipboard) Option {
	return func(a *application) {
		a.clipboard = c
	}
}
