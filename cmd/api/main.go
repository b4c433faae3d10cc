package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/chalkin/chalkin/internal/adapters/http"
	natsadapter "github.com/chalkin/chalkin/internal/adapters/nats"
	"github.com/chalkin/chalkin/internal/adapters/postgres"
	"github.com/chalkin/chalkin/internal/adapters/storage"
	"github.com/chalkin/chalkin/internal/adapters/strava"
	"github.com/chalkin/chalkin/internal/adapters/valkey"
	"github.com/chalkin/chalkin/internal/core/ports"
	"github.com/chalkin/chalkin/internal/core/usecases"
	"github.com/chalkin/chalkin/internal/pkg/config"
	"github.com/chalkin/chalkin/internal/pkg/logging"
	"github.com/chalkin/chalkin/internal/pkg/metrics"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack/catalog"
	"github.com/chalkin/chalkin/internal/pkg/telemetry"
	"github.com/chalkin/chalkin/internal/workflows"
)

func main() {
	cfg, err := config.Load("chalkin-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logFile := logging.SetupWithFile(cfg.Logging.Level, cfg.Logging.Format, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache
	var trackCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		trackCache = cache
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Object storage
	var archive ports.ObjectStorage
	store, err := storage.New(storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		slog.Warn("object storage unavailable", "error", err)
	} else {
		if err := store.EnsureBucket(ctx); err != nil {
			slog.Warn("object storage bucket check failed", "error", err)
		}
		archive = store
	}

	// Temporal
	var starter ports.WorkflowStarter
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		slog.Warn("temporal unavailable, exports disabled", "error", err)
	} else {
		defer tc.Close()
		starter = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	}

	// Strava
	var oauth ports.StravaOAuth
	if cfg.Strava.Enabled() {
		oauth = strava.NewOAuth(strava.OAuthOptions{
			ClientID:     cfg.Strava.ClientID,
			ClientSecret: cfg.Strava.ClientSecret,
			RedirectURI:  cfg.Strava.RedirectURI,
			AuthURL:      cfg.Strava.AuthURL,
			TokenURL:     cfg.Strava.TokenURL,
		})
	} else {
		slog.Warn("strava credentials not configured, strava endpoints disabled")
	}
	stravaAPI := strava.NewClient(cfg.Strava.APIBaseURL, nil)

	// Shape catalog
	builtin := catalog.Default()
	if cfg.Shapes.CatalogFile != "" {
		builtin, err = catalog.Load(cfg.Shapes.CatalogFile)
		if err != nil {
			log.Fatalf("shape catalog: %v", err)
		}
	}

	// Repos
	shapeRepo := postgres.NewShapeRepo(db)
	exportRepo := postgres.NewExportRepo(db)
	stravaRepo := postgres.NewStravaRepo(db)

	// Use cases
	shapeSvc := usecases.NewShapeService(shapeRepo, builtin)
	trackSvc := usecases.NewTrackService(shapeSvc, trackCache, trackDefaults(cfg.Tracks))
	stravaSvc := usecases.NewStravaService(stravaRepo, oauth, cfg.Strava.StateSecret)
	exportSvc := usecases.NewExportService(exportRepo, trackSvc, stravaSvc, stravaAPI, archive, events, starter)

	// WebSocket relay of export events
	hub := http.NewHub()
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, websocket events disabled", "error", err)
	} else {
		defer sub.Close()
		if err := hub.Run(ctx, sub); err != nil {
			slog.Warn("export event subscription failed", "error", err)
		}
	}

	deps := &http.Dependencies{
		Shapes:          shapeSvc,
		Tracks:          trackSvc,
		Strava:          stravaSvc,
		Exports:         exportSvc,
		Events:          hub,
		DB:              db,
		Cache:           cache,
		Storage:         store,
		StravaReturnURL: strings.TrimSuffix(cfg.Server.PublicBaseURL, "/") + "/profile",
		RateLimitRPM:    cfg.Server.RateLimitRPM,
	}
	if sub != nil {
		deps.NATS = sub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Chalkin API",
		Immutable:    true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowOrigins, ", "),
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + http.UserHeader,
		ExposeHeaders:    "Content-Disposition, Location, X-Cache",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func trackDefaults(t config.TracksConfig) usecases.TrackDefaults {
	return usecases.TrackDefaults{
		CenterLat:       t.CenterLat,
		CenterLon:       t.CenterLon,
		ScaleMeters:     t.ScaleMeters,
		NumPoints:       t.NumPoints,
		DurationSeconds: t.DurationSeconds,
		CurveSteps:      t.CurveSteps,
		MaxPoints:       t.MaxPoints,
		CacheTTL:        t.CacheTTL,
	}
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
