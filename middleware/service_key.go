package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

const localServiceCall = "service_call"

// AllowServiceKey lets machine callers presenting the service role key through
// with elevated access. Everyone else goes through fallback. An empty key
// disables the bypass.
func AllowServiceKey(serviceKey string, fallback fiber.Handler) fiber.Handler {
	expected := []byte(serviceKey)
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if len(expected) > 0 && token != "" && subtle.ConstantTimeCompare([]byte(token), expected) == 1 {
			slog.Debug("[AUTH] service key accepted", "path", c.Path())
			c.Locals(localServiceCall, true)
			return c.Next()
		}
		return fallback(c)
	}
}

// IsServiceCall reports whether the request authenticated with the service key.
func IsServiceCall(c *fiber.Ctx) bool {
	ok, _ := c.Locals(localServiceCall).(bool)
	return ok
}
