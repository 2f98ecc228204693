package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Scraper renderers.
const (
	RendererHTTP    = "http"
	RendererBrowser = "browser"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Auth    AuthConfig        `yaml:"auth"`
	Fetch   FetchConfig       `yaml:"fetch"`
	Scraper ScraperConfig     `yaml:"scraper"`
	Export  ExportConfig      `yaml:"export"`
	History HistoryConfig     `yaml:"history"`
	Inbox   InboxConfig       `yaml:"inbox"`
	Upload  UploadConfig      `yaml:"upload"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Auth, &c.Fetch, &c.Scraper, &c.Export, &c.History, &c.Inbox, &c.Upload,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// FetchConfig points URL pastes at a scrape service.
type FetchConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Timeout caps a whole fetch. Zero enforces none; only the transport's
	// own dial and TLS timeouts apply.
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the fetch configuration.
func (c *FetchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ScraperConfig controls the built-in /scrape endpoint.
type ScraperConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Renderer   string        `yaml:"renderer"`
	Attempts   int           `yaml:"attempts"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxBytes   int64         `yaml:"max_bytes"`
	// BrowserBin overrides the Chromium binary for the browser renderer.
	BrowserBin string `yaml:"browser_bin"`
	// AllowLoopback lets the scraper fetch localhost pages.
	AllowLoopback bool `yaml:"allow_loopback"`
}

// Validate validates the scraper configuration.
func (c *ScraperConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Renderer, validation.Required, validation.In(RendererHTTP, RendererBrowser)),
		validation.Field(&c.Attempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	)
}

// ExportConfig controls export delivery.
type ExportConfig struct {
	// Dir receives file exports; empty disables them.
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"`
	Clipboard bool   `yaml:"clipboard"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In("txt", "md")),
	)
}

// HistoryConfig holds the SQLite export history location.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// InboxConfig controls the watched drop directory.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// UploadConfig limits uploaded attachments.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Fetch: FetchConfig{
			Endpoint: "http://localhost:3000",
		},
		Scraper: ScraperConfig{
			Enabled:    true,
			Renderer:   RendererHTTP,
			Attempts:   3,
			RetryDelay: time.Second,
			Timeout:    30 * time.Second,
			MaxBytes:   2 << 20,
		},
		Export: ExportConfig{
			Dir:       "./exports",
			Format:    "txt",
			Clipboard: true,
		},
		History: HistoryConfig{
			Path: "./promptcraft.db",
		},
		Inbox: InboxConfig{
			Enabled: false,
			Path:    "./inbox",
		},
		Upload: UploadConfig{
			MaxBytes: 10 << 20,
		},
	}
}
