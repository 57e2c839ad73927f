package middleware

import (
	"log/slog"
	"strings"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID      = "user_id"
	localAccessToken = "access_token"
)

func bearerToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// RequireIdentity resolves the bearer token to a principal and stores it in Locals.
func RequireIdentity(resolver services.IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			slog.Debug("[AUTH] missing bearer token", "path", c.Path())
			return services.Unauthenticated("missing bearer token")
		}

		principal, err := resolver.Resolve(c.UserContext(), token)
		if err != nil {
			if services.KindOf(err) == services.KindUnauthenticated {
				return err
			}
			slog.Error("[AUTH] token validation failed", "path", c.Path(), "error", err)
			return services.Unauthenticated("could not validate token")
		}

		c.Locals(localUserID, principal.ID)
		c.Locals(localAccessToken, token)
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" on unauthenticated routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// Access is the caller-scoped data access capability for this request.
func Access(c *fiber.Ctx) storage.Access {
	if IsServiceCall(c) {
		return storage.Elevated()
	}
	token, _ := c.Locals(localAccessToken).(string)
	return storage.ScopedTo(UserID(c), token)
}
