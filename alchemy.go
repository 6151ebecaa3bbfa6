// Package alchemy is an image metadata service built with Go, Echo, and templ.
// Users upload images, a hosted vision model writes Pinterest-ready titles,
// descriptions and keywords for them, and the results can be edited, resized
// per platform, and spread over a posting schedule exported as CSV.
package alchemy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/alchemy/metadata"
	"github.com/eringen/alchemy/views"
	"github.com/eringen/alchemy/vision"
)

const uploadsSubdir = "uploads"

// ViewFuncs holds the page components the handlers render. DefaultViews
// returns the built-in set; WithViews swaps it.
type ViewFuncs struct {
	Login       func(showError bool, csrfToken string) templ.Component
	Dashboard   func(d views.DashboardData) templ.Component
	Scheduler   func(d views.SchedulerData) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// DefaultViews returns the built-in pages.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Login:       views.Login,
		Dashboard:   views.Dashboard,
		Scheduler:   views.Scheduler,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App wires together the store, cache, processing queue, handlers and middleware.
type App struct {
	Config    Config
	Echo      *echo.Echo
	Store     *Store
	Cache     *ListingCache
	Views     ViewFuncs
	Processor *Processor
	Queue     *Queue
	Cleaner   *Cleaner

	describer    vision.Describer
	parser       metadata.Parser
	httpClient   *http.Client
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	closers      []io.Closer
	stopCleanup  func()
	initialized  bool
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:     cfg,
		Echo:       echo.New(),
		Views:      DefaultViews(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) validate() error {
	if a.describer == nil {
		return a.Config.Validate()
	}
	if a.Config.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	return a.Config.validateRuntime()
}

// Init opens the store, builds the vision backend and processing pipeline,
// and registers middleware and routes. Start calls it; tests may call it alone.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.validate(); err != nil {
		return fmt.Errorf("alchemy: %w", err)
	}

	store, err := NewStore(a.Config.DBPath)
	if err != nil {
		return fmt.Errorf("alchemy: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewListingCache(store, a.Config.ListingCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.describer == nil {
		d, err := a.newDescriber(ctx)
		if err != nil {
			return fmt.Errorf("alchemy: init vision: %w", err)
		}
		a.describer = vision.NewBreaker(d, 5, 30*time.Second)
	}

	prompt := metadata.Prompt
	if a.Config.StructuredOutput {
		prompt = metadata.JSONPrompt
	}
	if a.parser == nil {
		if a.Config.StructuredOutput {
			a.parser = metadata.JSON{}
		} else {
			a.parser = metadata.Markers{}
		}
	}

	a.Processor = &Processor{
		Store:     store,
		Describer: a.describer,
		Parser:    a.parser,
		Prompt:    prompt,
		Dir:       a.uploadsDir(),
		Client:    a.httpClient,
		OnResult:  a.Cache.Invalidate,
	}
	a.Queue = NewQueue(a.Config.WorkerCount, a.Config.QueueSize, a.Processor.Handle)
	a.Cleaner = &Cleaner{
		Store: store,
		Dir:   a.uploadsDir(),
		TTL:   a.Config.ImageTTL,
		OnDelete: func(int) {
			a.Cache.InvalidateAll()
		},
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

func (a *App) newDescriber(ctx context.Context) (vision.Describer, error) {
	switch a.Config.VisionBackend {
	case BackendGemini:
		g, err := vision.NewGemini(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g)
		log.Printf("[vision] gemini model %s, key %s", a.Config.GeminiModel, maskSecret(a.Config.GeminiAPIKey))
		return g, nil
	default:
		log.Printf("[vision] cloudflare model %s, token %s", a.Config.CloudflareModel, maskSecret(a.Config.CloudflareAPIToken))
		return vision.NewCloudflare(a.Config.CloudflareAccountID, a.Config.CloudflareAPIToken, a.Config.CloudflareModel), nil
	}
}

// Start initializes the app, starts the workers and cleanup scheduler, and
// serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Queue.Start()
	if n, err := a.ResumeProcessing(context.Background()); err != nil {
		log.Printf("[worker] resume: %v", err)
	} else if n > 0 {
		log.Printf("[worker] requeued %d interrupted images", n)
	}
	a.stopCleanup = a.Cleaner.StartScheduler(a.Config.CleanupInterval)

	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// errInterrupted is stored on images that were processing when the server
// stopped and could not be queued again.
const errInterrupted = "Processing was interrupted. Regenerate to try again."

// ResumeProcessing queues images left in processing by an earlier run and
// returns how many were queued. Images the queue cannot take are marked failed.
func (a *App) ResumeProcessing(ctx context.Context) (int, error) {
	pending, err := a.Store.ListByStatus(ctx, StatusProcessing)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, img := range pending {
		if a.Queue.Submit(img.ID) == nil {
			queued++
			continue
		}
		if err := a.Store.SetResult(ctx, img.ID, StatusFailed, img.Metadata, errInterrupted); err != nil {
			return queued, err
		}
		a.Cache.Invalidate(img.UserID)
	}
	return queued, nil
}

// Shutdown stops accepting requests and then releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// Close stops background work and closes the store. Queued jobs finish first.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
		a.stopCleanup = nil
	}
	if a.Queue != nil {
		a.Queue.Stop()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
		a.Store = nil
	}
	return errors.Join(errs...)
}

func (a *App) uploadsDir() string {
	return a.Config.UploadsDir()
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)

	e.GET("/", a.handleHome)
	e.GET("/login/", a.handleLoginPage)
	e.POST("/login/", a.handleLogin)
	e.POST("/logout/", handleLogout)

	e.GET("/api/cron/cleanup/", a.handleCronCleanup)

	auth := e.Group("", a.requireUser)
	auth.GET("/dashboard/", a.handleDashboard)
	auth.GET("/scheduler/", a.handleSchedulerPage)
	auth.GET("/images/:id/download/", a.handleDownload)

	auth.GET("/api/images/", a.handleListImages)
	auth.PUT("/api/images/:id/", a.handleUpdateImage)
	auth.POST("/api/images/delete/", a.handleBulkDelete)
	auth.POST("/api/images/:id/regenerate/", a.handleRegenerate)
	auth.POST("/api/upload/", a.handleUpload)
	auth.POST("/api/process-now/", a.handleProcessNow)
	auth.POST("/api/schedule/", a.handleGenerateSchedule)
	auth.GET("/api/schedule.csv", a.handleScheduleCSV)
}
