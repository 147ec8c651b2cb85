package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"

	"github.com/melih/lighthouse-executor/internal/logger"
)

// RequestIDHeader carries the correlation id of a request.
const RequestIDHeader = "X-Request-ID"

// NewApp builds the fiber application. metrics may be nil.
func NewApp(h *BuildHandler, metrics http.Handler) *fiber.App {
	// Params and headers outlive the handler (request context, logs), so
	// they must not alias fasthttp buffers.
	app := fiber.New(fiber.Config{DisableStartupMessage: true, Immutable: true})
	app.Use(RequestID)

	app.Get("/healthz", h.Health)
	if metrics != nil {
		// Fiber <-> Net/HTTP Adaptor
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	v1 := app.Group("/api").Group("/v1")
	v1.Get("/stats", h.Stats)

	builds := v1.Group("/builds")
	builds.Post("/", h.StartBuild)
	builds.Delete("/:id", h.StopBuild)
	builds.Post("/:id/periodic", h.StartPeriodic)
	builds.Delete("/:id/periodic", h.StopPeriodic)
	builds.Post("/:id/frozen", h.StartFrozen)
	builds.Delete("/:id/frozen", h.StopFrozen)

	return app
}

// RequestID propagates the caller's X-Request-ID, or assigns a new one, and
// attaches it to the request context for logging.
func RequestID(c *fiber.Ctx) error {
	id := c.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(RequestIDHeader, id)
	c.SetUserContext(logger.WithRequestID(c.UserContext(), id))
	return c.Next()
}
