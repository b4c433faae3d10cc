package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"

	"github.com/chalkin/chalkin/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// deprecatedRoutes are still served but announce their successor.
var deprecatedRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/logo.gpx",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/shapes/chalkin/gpx",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware("/metrics", "/v1/health"))

	// Rate limiting per IP
	if deps.RateLimitRPM > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        deps.RateLimitRPM,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, 429, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(DeprecationMiddleware(deprecatedRoutes))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Tracks
	v1.Post("/tracks/convert", timeout.NewWithContext(ConvertTrackHandler(deps), requestTimeout))
	v1.Get("/logo.gpx", timeout.NewWithContext(ShapeGPXHandler(deps, "chalkin"), requestTimeout))

	// Shapes
	v1.Get("/shapes", timeout.NewWithContext(ListShapesHandler(deps), requestTimeout))
	v1.Post("/shapes", RequireUser(), timeout.NewWithContext(CreateShapeHandler(deps), requestTimeout))
	v1.Post("/shapes/svg", RequireUser(), timeout.NewWithContext(UploadShapeSVGHandler(deps), requestTimeout))
	v1.Get("/shapes/:slug", timeout.NewWithContext(GetShapeHandler(deps), requestTimeout))
	v1.Get("/shapes/:slug/gpx", timeout.NewWithContext(ShapeGPXHandler(deps, ""), requestTimeout))
	v1.Delete("/shapes/:slug", RequireUser(), timeout.NewWithContext(DeleteShapeHandler(deps), requestTimeout))

	// Strava. The callback is reached by Strava's redirect and is
	// authenticated by its signed state instead of the user header.
	v1.Get("/strava/callback", timeout.NewWithContext(StravaCallbackHandler(deps), requestTimeout))
	strava := v1.Group("/strava", RequireUser())
	strava.Get("/connect", StravaConnectHandler(deps))
	strava.Get("/status", timeout.NewWithContext(StravaStatusHandler(deps), requestTimeout))
	strava.Delete("/disconnect", timeout.NewWithContext(StravaDisconnectHandler(deps), requestTimeout))
	strava.Post("/refresh-token", timeout.NewWithContext(StravaRefreshHandler(deps), requestTimeout))

	// Exports
	exports := v1.Group("/exports", RequireUser())
	exports.Post("/", timeout.NewWithContext(StartExportHandler(deps), requestTimeout))
	exports.Get("/", timeout.NewWithContext(ListExportsHandler(deps), requestTimeout))
	exports.Get("/:id", timeout.NewWithContext(GetExportHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, openAPISpecPath)

	// WebSocket. Browsers cannot set headers on the upgrade request, so the
	// user id may also come from the user_id query parameter.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id := strings.TrimSpace(c.Get(UserHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query("user_id"))
		}
		if id == "" {
			return errUnauthorized(c, "missing "+UserHeader+" header")
		}
		c.Locals("user_id", utils.CopyString(id))
		return c.Next()
	})
	if deps.Events != nil {
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
	}
}
