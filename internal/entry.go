// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/promptcraft/internal/api"
	"github.com/starford/promptcraft/internal/export"
	"github.com/starford/promptcraft/internal/fetch"
	"github.com/starford/promptcraft/internal/history"
	"github.com/starford/promptcraft/internal/inbox"
	"github.com/starford/promptcraft/internal/scraper"
	"github.com/starford/promptcraft/internal/sse"
	"github.com/starford/promptcraft/internal/storage"
	"github.com/starford/promptcraft/internal/workspace"
)

// services are the long-lived components shared by every command.
type services struct {
	logger  *slog.Logger
	history *history.DB
	broker  *sse.Broker
	ws      *workspace.Workspace
}

func (s *services) Close() {
	s.ws.Wait()
	if s.broker != nil {
		s.broker.Close()
	}
	if err := s.history.Close(); err != nil {
		s.logger.Error("close history", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger. Commands whose stdout
// carries data log to stderr instead.
func (a *application) newLogger(w io.Writer) *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// build wires history, export, fetch and the workspace. broker may be nil.
func (a *application) build(logger *slog.Logger, broker *sse.Broker) (*services, error) {
	cfg := a.config

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	exp := &export.Exporter{
		Clip:    a.clipboard,
		History: db,
		Format:  cfg.Export.Format,
		Logger:  logger,
	}
	if exp.Clip == nil {
		if cfg.Export.Clipboard {
			exp.Clip = export.SystemClipboard{}
		} else {
			exp.Clip = export.NoClipboard{}
		}
	}
	if cfg.Export.Dir != "" {
		files, err := storage.NewFS(cfg.Export.Dir, true)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init export dir: %w", err)
		}
		exp.Files = files
	}

	fetcher := a.fetcher
	if fetcher == nil {
		fetcher = fetch.NewClient(cfg.Fetch.Endpoint, &http.Client{Timeout: cfg.Fetch.Timeout})
	}

	ws := workspace.New(workspace.Options{
		Fetcher:  fetcher,
		Exporter: exp,
		History:  db,
		Broker:   broker,
		Logger:   logger,
	})
	return &services{logger: logger, history: db, broker: broker, ws: ws}, nil
}

// newScraper builds the /scrape handler for the configured renderer.
func newScraper(cfg ScraperConfig, logger *slog.Logger) *scraper.Service {
	var r scraper.Renderer
	switch cfg.Renderer {
	case RendererBrowser:
		r = &scraper.BrowserRenderer{
			Bin:           cfg.BrowserBin,
			Timeout:       cfg.Timeout,
			Settle:        500 * time.Millisecond,
			AllowLoopback: cfg.AllowLoopback,
		}
	default:
		r = scraper.NewHTTPRenderer(cfg.Timeout, cfg.MaxBytes, cfg.AllowLoopback)
	}
	return scraper.NewService(r, cfg.Attempts, cfg.RetryDelay, logger)
}

// newRouter builds the root chi router.
func newRouter(cfg *Config, svc *services) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.history.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Scrape service used by URL pastes (fetch.endpoint points here by default).
	if cfg.Scraper.Enabled {
		r.Method(http.MethodGet, "/scrape", newScraper(cfg.Scraper, svc.logger))
	}

	// Mount API routes under /api; /api/events streams notifications.
	var events http.Handler
	if svc.broker != nil {
		events = svc.broker
	}
	r.Mount("/api", api.NewRouter(svc.ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events, cfg.Upload.MaxBytes))

	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("fetch_endpoint", cfg.Fetch.Endpoint),
		slog.Bool("scraper_enabled", cfg.Scraper.Enabled),
		slog.String("history_path", cfg.History.Path),
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	svc, err := app.build(logger, broker)
	if err != nil {
		broker.Close()
		return err
	}
	defer svc.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newRouter(cfg, svc),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Watch the inbox directory, ingesting files into the default session.
	if cfg.Inbox.Enabled {
		files, err := storage.NewFS(cfg.Inbox.Path, true)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		in := inbox.New(files, svc.ws, logger)
		g.Go(func() error {
			if err := in.Sync(); err != nil {
				logger.Warn("initial inbox sync failed", slog.String("error", err.Error()))
			}
			if err := in.Watch(gCtx); err != nil {
				logger.Error("inbox watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		// Stopping the run context ends the inbox watcher too.
		defer stop()

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
