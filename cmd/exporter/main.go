package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/chalkin/chalkin/internal/adapters/nats"
	"github.com/chalkin/chalkin/internal/adapters/postgres"
	"github.com/chalkin/chalkin/internal/adapters/storage"
	"github.com/chalkin/chalkin/internal/adapters/strava"
	"github.com/chalkin/chalkin/internal/core/ports"
	"github.com/chalkin/chalkin/internal/core/usecases"
	"github.com/chalkin/chalkin/internal/pkg/config"
	"github.com/chalkin/chalkin/internal/pkg/logging"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack/catalog"
	"github.com/chalkin/chalkin/internal/workflows"
)

func main() {
	cfg, err := config.Load("chalkin-exporter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store, err := storage.New(storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("object storage: %v", err)
	}

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, export events will not be published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	if !cfg.Strava.Enabled() {
		log.Fatal("exporter needs strava.client_id and strava.client_secret")
	}
	oauth := strava.NewOAuth(strava.OAuthOptions{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURI:  cfg.Strava.RedirectURI,
		AuthURL:      cfg.Strava.AuthURL,
		TokenURL:     cfg.Strava.TokenURL,
	})

	builtin := catalog.Default()
	if cfg.Shapes.CatalogFile != "" {
		if builtin, err = catalog.Load(cfg.Shapes.CatalogFile); err != nil {
			log.Fatalf("shape catalog: %v", err)
		}
	}

	shapes := usecases.NewShapeService(postgres.NewShapeRepo(db), builtin)
	tracks := usecases.NewTrackService(shapes, nil, usecases.TrackDefaults{
		CenterLat:       cfg.Tracks.CenterLat,
		CenterLon:       cfg.Tracks.CenterLon,
		ScaleMeters:     cfg.Tracks.ScaleMeters,
		NumPoints:       cfg.Tracks.NumPoints,
		DurationSeconds: cfg.Tracks.DurationSeconds,
		CurveSteps:      cfg.Tracks.CurveSteps,
		MaxPoints:       cfg.Tracks.MaxPoints,
	})
	stravaSvc := usecases.NewStravaService(postgres.NewStravaRepo(db), oauth, cfg.Strava.StateSecret)
	exports := usecases.NewExportService(
		postgres.NewExportRepo(db),
		tracks,
		stravaSvc,
		strava.NewClient(cfg.Strava.APIBaseURL, nil),
		store,
		events,
		nil, // workers only execute activities
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ExportWorkflow)
	w.RegisterActivity(&workflows.ExportActivities{Exports: exports})

	slog.Info("export worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
