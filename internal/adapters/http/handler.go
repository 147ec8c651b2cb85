package http

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/ports"
	"github.com/melih/lighthouse-executor/internal/logger"
)

const pingTimeout = 5 * time.Second

type BuildHandler struct {
	service ports.ExecutorService
	pinger  ports.Pinger
	log     *slog.Logger
}

func NewBuildHandler(service ports.ExecutorService, pinger ports.Pinger, log *slog.Logger) *BuildHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BuildHandler{service: service, pinger: pinger, log: log}
}

func (h *BuildHandler) StartBuild(c *fiber.Ctx) error {
	var req domain.BuildRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"kind":  "bad_request",
		})
	}

	if err := h.service.Start(c.UserContext(), req); err != nil {
		return h.writeError(c, "start", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"build_id": req.BuildID,
		"status":   "started",
	})
}

func (h *BuildHandler) StopBuild(c *fiber.Ctx) error {
	req := domain.StopRequest{
		BuildID:    c.Params("id"),
		NamePrefix: c.Query("prefix"),
	}

	if err := h.service.Stop(c.UserContext(), req); err != nil {
		return h.writeError(c, "stop", err)
	}

	return c.JSON(fiber.Map{
		"build_id": req.BuildID,
		"status":   "stopped",
	})
}

func (h *BuildHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.service.Stats())
}

// Periodic and frozen builds are accepted and ignored.

func (h *BuildHandler) StartPeriodic(c *fiber.Ctx) error {
	return h.noEffect(c, h.service.StartPeriodic(c.UserContext(), domain.BuildRequest{BuildID: c.Params("id")}))
}

func (h *BuildHandler) StopPeriodic(c *fiber.Ctx) error {
	return h.noEffect(c, h.service.StopPeriodic(c.UserContext(), domain.StopRequest{BuildID: c.Params("id")}))
}

func (h *BuildHandler) StartFrozen(c *fiber.Ctx) error {
	return h.noEffect(c, h.service.StartFrozen(c.UserContext(), domain.BuildRequest{BuildID: c.Params("id")}))
}

func (h *BuildHandler) StopFrozen(c *fiber.Ctx) error {
	return h.noEffect(c, h.service.StopFrozen(c.UserContext(), domain.StopRequest{BuildID: c.Params("id")}))
}

// Health reports whether the runtime endpoint answers. It bypasses the
// breaker so that an open breaker does not hide a recovered runtime.
func (h *BuildHandler) Health(c *fiber.Ctx) error {
	if h.pinger == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *BuildHandler) noEffect(c *fiber.Ctx, err error) error {
	if err != nil {
		return h.writeError(c, "noop", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// writeError maps executor errors to HTTP statuses. The message is passed
// through unchanged.
func (h *BuildHandler) writeError(c *fiber.Ctx, action string, err error) error {
	status, kind := classify(err)
	logger.FromContext(c.UserContext(), h.log).Error("request failed",
		"action", action, "kind", kind, "status", status, "error", err)

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  kind,
	})
}

func classify(err error) (int, string) {
	var (
		resErr  *domain.ImageResolutionError
		openErr *domain.CircuitOpenError
		callErr *domain.RuntimeCallError
	)
	switch {
	case errors.As(err, &resErr):
		return fiber.StatusBadRequest, "image_resolution"
	case errors.Is(err, domain.ErrInvalidBuildID):
		return fiber.StatusBadRequest, "invalid_build_id"
	case errors.As(err, &openErr):
		return fiber.StatusServiceUnavailable, "circuit_open"
	case errors.As(err, &callErr):
		if callErr.Timeout {
			return fiber.StatusGatewayTimeout, "runtime_timeout"
		}
		return fiber.StatusBadGateway, "runtime"
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}
