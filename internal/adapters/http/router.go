package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
)

const (
	requestTimeout    = 15 * time.Second
	generationTimeout = 90 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	if deps.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: deps.AllowOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-Organizer-Token",
		}))
	}

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/rides", timeout.NewWithContext(CreateRideHandler(deps), requestTimeout))
	v1.Get("/rides/:id", timeout.NewWithContext(GetRideHandler(deps), requestTimeout))
	v1.Post("/rides/:id/verify-pin", timeout.NewWithContext(VerifyPINHandler(deps), requestTimeout))
	v1.Put("/rides/:id/waypoints", timeout.NewWithContext(SetWaypointsHandler(deps), requestTimeout))
	v1.Post("/rides/:id/preferences", timeout.NewWithContext(SubmitPreferenceHandler(deps), requestTimeout))
	v1.Get("/rides/:id/preferences", timeout.NewWithContext(ListPreferencesHandler(deps), requestTimeout))
	v1.Get("/rides/:id/summary", timeout.NewWithContext(SummaryHandler(deps), requestTimeout))
	v1.Post("/rides/:id/generate", timeout.NewWithContext(GenerateHandler(deps), generationTimeout))
	v1.Get("/rides/:id/routes", timeout.NewWithContext(ListRoutesHandler(deps), requestTimeout))
	v1.Get("/rides/:id/routes/:routeId/geojson", timeout.NewWithContext(RouteGeoJSONHandler(deps), requestTimeout))
	v1.Get("/rides/:id/routes/:routeId/polyline", timeout.NewWithContext(RoutePolylineHandler(deps), requestTimeout))
	v1.Get("/pois/search", timeout.NewWithContext(SearchPOIsHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/rides/:id", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
