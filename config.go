package alchemy

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/eringen/alchemy/metadata"
	"github.com/eringen/alchemy/vision"
)

// Vision backends accepted in VISION_BACKEND.
const (
	BackendCloudflare = "cloudflare"
	BackendGemini     = "gemini"
)

// Config holds all configuration for an alchemy server.
type Config struct {
	Addr    string `env:"ALCHEMY_ADDR"`     // Listen address (default ":3000")
	BaseURL string `env:"ALCHEMY_BASE_URL"` // Public URL used in exported image links (default "http://localhost:3000")
	DBPath  string `env:"ALCHEMY_DB"`       // SQLite path (default "data/alchemy.db")

	SessionSecret string   `env:"SESSION_SECRET"`              // Required: session encryption secret
	AdminOTPs     []string `env:"ADMIN_OTPS" envSeparator:","` // One-time passcodes allowed to log in
	CronSecret    string   `env:"CRON_SECRET"`                 // Bearer token for the cleanup endpoint
	CookieSecure  bool     `env:"COOKIE_SECURE"`               // Set true for HTTPS

	VisionBackend       string `env:"VISION_BACKEND"` // "cloudflare" (default) or "gemini"
	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	CloudflareAPIToken  string `env:"CLOUDFLARE_API_TOKEN"`
	CloudflareModel     string `env:"CLOUDFLARE_MODEL"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	GeminiModel         string `env:"GEMINI_MODEL"`
	StructuredOutput    bool   `env:"STRUCTURED_OUTPUT"` // expect JSON from the model

	WorkerCount int `env:"WORKER_COUNT"` // Background processing workers (default 2)
	QueueSize   int `env:"QUEUE_SIZE"`   // Pending processing jobs (default 100)

	ImageTTL        time.Duration `env:"IMAGE_TTL"`         // Image lifetime (default 3h)
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`  // Expiry sweep period (default 10m)
	ListingCacheTTL time.Duration `env:"LISTING_CACHE_TTL"` // Per-user listing cache TTL (default 30s)

	StaticDir string `env:"STATIC_DIR"` // Uploaded files live under <StaticDir>/uploads (default "public")
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:3000"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.DBPath == "" {
		c.DBPath = "data/alchemy.db"
	}
	if c.VisionBackend == "" {
		c.VisionBackend = BackendCloudflare
	}
	if c.CloudflareModel == "" {
		c.CloudflareModel = vision.DefaultCloudflareModel
	}
	if c.GeminiModel == "" {
		c.GeminiModel = vision.DefaultGeminiModel
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = 2
	}
	if c.QueueSize == 0 {
		c.QueueSize = 100
	}
	if c.ImageTTL == 0 {
		c.ImageTTL = 3 * time.Hour
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 10 * time.Minute
	}
	if c.ListingCacheTTL == 0 {
		c.ListingCacheTTL = 30 * time.Second
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	c.AdminOTPs = FilterEmpty(c.AdminOTPs)
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	switch c.VisionBackend {
	case BackendCloudflare:
		if c.CloudflareAccountID == "" {
			return fmt.Errorf("CLOUDFLARE_ACCOUNT_ID is required when VISION_BACKEND is cloudflare")
		}
		if c.CloudflareAPIToken == "" {
			return fmt.Errorf("CLOUDFLARE_API_TOKEN is required when VISION_BACKEND is cloudflare")
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when VISION_BACKEND is gemini")
		}
	default:
		return fmt.Errorf("VISION_BACKEND must be %q or %q, got %q", BackendCloudflare, BackendGemini, c.VisionBackend)
	}
	return c.validateRuntime()
}

// validateRuntime checks the settings the workers, cache and cleanup use.
func (c *Config) validateRuntime() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1")
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"IMAGE_TTL", c.ImageTTL},
		{"CLEANUP_INTERVAL", c.CleanupInterval},
		{"LISTING_CACHE_TTL", c.ListingCacheTTL},
	} {
		if d.v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.v)
		}
	}
	return nil
}

// UploadsDir is where uploaded images are stored.
func (c Config) UploadsDir() string {
	return filepath.Join(c.StaticDir, uploadsSubdir)
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir overrides Config.StaticDir.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithDescriber replaces the vision backend chosen from Config.
func WithDescriber(d vision.Describer) Option {
	return func(a *App) {
		a.describer = d
	}
}

// WithParser replaces the model output parser.
func WithParser(p metadata.Parser) Option {
	return func(a *App) {
		a.parser = p
	}
}

// WithViews replaces the built-in page components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
