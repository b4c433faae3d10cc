package http

import (
	"github.com/nats-io/nats.go"

	"github.com/chalkin/chalkin/internal/adapters/postgres"
	"github.com/chalkin/chalkin/internal/adapters/storage"
	"github.com/chalkin/chalkin/internal/adapters/valkey"
	"github.com/chalkin/chalkin/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Shapes  *usecases.ShapeService
	Tracks  *usecases.TrackService
	Strava  *usecases.StravaService
	Exports *usecases.ExportService
	Events  *Hub
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache
	Storage *storage.ObjectStore

	// StravaReturnURL is where the browser lands after the OAuth callback.
	StravaReturnURL string
	// RateLimitRPM is the per-IP request budget; zero disables limiting.
	RateLimitRPM int
}
