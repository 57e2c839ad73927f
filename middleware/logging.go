package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs every request at a level matching its status class and records metrics.
func RequestLogger(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			// Let the error handler write the response so the status below is final.
			if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		route := c.Route().Path

		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", elapsed.String(),
			"ip", c.IP(),
		}
		if uid := UserID(c); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			slog.Error("[HTTP] request", attrs...)
		case status >= fiber.StatusBadRequest:
			slog.Warn("[HTTP] request", attrs...)
		default:
			slog.Info("[HTTP] request", attrs...)
		}

		m.HTTPRequest(c.Method(), route, strconv.Itoa(status), elapsed.Seconds())
		return nil
	}
}
