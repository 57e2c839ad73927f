package handlers

import (
	"errors"
	"log/slog"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the app-wide fiber error handler. Classified service errors
// keep their message; anything else becomes a 500 carrying only the message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var se *services.Error
	if errors.As(err, &se) {
		body := fiber.Map{
			"error": se.Message,
			"code":  se.Kind,
		}
		if se.UpstreamStatus != 0 {
			body["upstreamStatus"] = se.UpstreamStatus
		}
		status := se.HTTPStatus()
		if status >= fiber.StatusInternalServerError {
			slog.Error("[HTTP] request failed", "path", c.Path(), "error", err)
		}
		return c.Status(status).JSON(body)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	slog.Error("[HTTP] unhandled error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
