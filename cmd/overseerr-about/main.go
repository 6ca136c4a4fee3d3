package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"overseerr-about/internal/about"
	"overseerr-about/internal/broadcaster"
	"overseerr-about/internal/config"
	"overseerr-about/internal/db"
	abouthandlers "overseerr-about/internal/handlers/about"
	"overseerr-about/internal/handlers/health"
	releasehandlers "overseerr-about/internal/handlers/releases"
	versionhandlers "overseerr-about/internal/handlers/version"
	"overseerr-about/internal/logging"
	"overseerr-about/internal/metrics"
	"overseerr-about/internal/middleware"
	"overseerr-about/internal/overseerr"
	"overseerr-about/internal/panel"
	"overseerr-about/internal/releases"
	"overseerr-about/internal/status"
	"overseerr-about/internal/tasks"
	"overseerr-about/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	_ = godotenv.Load()

	// ---- Config & Logging ----
	cfg := config.Load()
	logger := logging.NewLogger(&logging.Config{
		Level:      logging.ParseLevel(cfg.LogLevel),
		Format:     cfg.LogFormat,
		Output:     os.Stdout,
		TimeFormat: time.RFC3339,
	})
	logging.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.OverseerrAPIKey == "" {
		logging.Warn("OVERSEERR_API_KEY is empty; the about endpoint will likely be rejected")
	}
	if cfg.AdminToken == "" {
		logging.Warn("ADMIN_TOKEN is empty; POST /api/about/revalidate is unprotected")
	}
	logging.Info("Starting overseerr-about", "version", version.Current().Version, "commit", version.Current().Commit)

	// ---- Database Initialization & Migration ----
	sqlDB, err := db.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func(dbh *sql.DB) { _ = dbh.Close() }(sqlDB)

	if err := db.MigrateUp(sqlDB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	store := db.NewStore(sqlDB)

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	// ---- Panel Pipeline ----
	links, err := config.LoadLinks(cfg.LinksFile)
	if err != nil {
		logging.Warn("Failed to load links file, using defaults", "path", cfg.LinksFile, "error", err)
	}
	deriver := status.Deriver{RepoURL: cfg.RepoURL(), Branch: cfg.UpstreamBranch}
	builder := panel.NewBuilder(deriver, links, cfg.Locale)

	client := overseerr.New(cfg.OverseerrBaseURL, cfg.OverseerrAPIKey, cfg.UpstreamTimeout())
	svc := about.NewService(client, deriver, builder, 2*cfg.RevalidateInterval(), recorder).
		WithDerivedObserver(recorder)

	// ---- Real-time UI Broadcaster ----
	bc := broadcaster.New(svc, recorder)
	defer bc.Stop()

	// ---- Background Revalidation ----
	revalidator, err := tasks.NewRevalidator(svc, store, cfg.RevalidateInterval(), cfg.UpstreamTimeout())
	if err != nil {
		log.Fatalf("failed to create revalidator: %v", err)
	}
	if err := revalidator.Seed(context.Background()); err != nil {
		logging.Warn("Failed to seed persisted snapshots", "error", err)
	}
	if err := revalidator.Start(); err != nil {
		log.Fatalf("failed to start revalidator: %v", err)
	}

	rel := releases.New(cfg.GitHubAPIURL, cfg.UpstreamRepo, cfg.ReleasesLimit, cfg.ReleasesTTL())

	// ---- Fiber v3 App ----
	app := fiber.New(fiber.Config{
		EnableIPValidation: true,
		ProxyHeader:        fiber.HeaderXForwardedFor,
	})
	app.Use(recover.New())
	app.Use(logging.FiberMiddleware(logger))

	// ---- Health & Metrics ----
	app.Get("/health", health.Health(store, about.AboutKey, svc.About, svc.Status))
	app.Get("/metrics", recorder.Handler())
	app.Get("/api/version", versionhandlers.GetVersion())

	// ---- About Routes ----
	app.Get("/about", abouthandlers.Page(svc, rel))
	app.Get("/api/about", abouthandlers.Snapshot(svc))
	app.Get("/api/about/ws", abouthandlers.UpgradeOnly, abouthandlers.WS(bc.Handler))
	app.Get("/api/about/history", abouthandlers.VersionHistory(store))
	app.Post("/api/about/revalidate", middleware.AdminAuth(cfg.AdminToken), abouthandlers.Revalidate(svc, revalidator))
	app.Get("/api/releases", releasehandlers.List(rel, svc))

	// ---- Start Server ----
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		logging.Info("Starting HTTP server", "addr", addr)
		if err := app.Listen(addr); err != nil {
			logging.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown failed", "error", err)
	}
	if err := revalidator.Stop(); err != nil {
		logging.Error("Scheduler shutdown failed", "error", err)
	}
}
