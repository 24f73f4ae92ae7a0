// Command alytics runs the recurring analytics report service: a scheduler
// that dispatches due tenant reports and an HTTP API for manual triggers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alytics/alytics/internal/adapter/googleanalytics"
	alhttp "github.com/alytics/alytics/internal/adapter/http"
	alnats "github.com/alytics/alytics/internal/adapter/nats"
	"github.com/alytics/alytics/internal/adapter/notion"
	"github.com/alytics/alytics/internal/adapter/openai"
	"github.com/alytics/alytics/internal/adapter/otel"
	"github.com/alytics/alytics/internal/adapter/postgres"
	"github.com/alytics/alytics/internal/adapter/quickchart"
	"github.com/alytics/alytics/internal/adapter/ristretto"
	"github.com/alytics/alytics/internal/adapter/supabase"
	"github.com/alytics/alytics/internal/config"
	"github.com/alytics/alytics/internal/logger"
	"github.com/alytics/alytics/internal/middleware"
	"github.com/alytics/alytics/internal/resilience"
	"github.com/alytics/alytics/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, yamlPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", yamlPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"scheduler_interval", cfg.Scheduler.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := alnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	locations, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Collaborators ---

	newBreaker := func() *resilience.Breaker {
		return resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	}

	textGen := openai.NewClient(cfg.OpenAI.URL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.CompileModel)
	textGen.SetBreaker(newBreaker())

	gaClient := googleanalytics.NewClient(
		cfg.Analytics.BaseURL,
		cfg.Analytics.TokenURL,
		cfg.Analytics.ClientID,
		cfg.Analytics.ClientSecret,
	)

	renderer := quickchart.NewRenderer(cfg.Charts.RendererURL)
	renderer.SetBreaker(newBreaker())

	storage := supabase.NewStorage(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Bucket)

	publisher := notion.NewPublisher(cfg.Notion.BaseURL, locations)
	publisher.SetBreaker(newBreaker())

	store := postgres.NewStore(pool)

	// --- Workflow ---

	def, err := service.ReportDefinition()
	if err != nil {
		return fmt.Errorf("workflow definition: %w", err)
	}

	registry := service.NewRegistry(service.Collaborators{
		Tenants:    store,
		Analytics:  gaClient,
		TextGen:    textGen,
		Charts:     renderer,
		Objects:    storage,
		Docs:       publisher,
		ParentHint: cfg.Notion.ParentHint,
	}, cfg.Charts.Specs)

	coordinator := service.NewCoordinator(
		log, def, registry, queue, metrics,
		cfg.Runs.MaxConcurrent, cfg.Runs.Timeout,
	)

	scheduler := service.NewScheduler(log, store, coordinator, cfg.Scheduler.Interval, cfg.Scheduler.DispatchLimit)
	go scheduler.Start(ctx)

	// --- HTTP ---

	handlers := &alhttp.Handlers{
		Tenants: store,
		Runs:    coordinator,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(alhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(alhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(alhttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(limiter.Handler)
	r.Use(middleware.APIKey(cfg.Server.APIKey))

	r.Get("/health", alhttp.Health)
	alhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
