package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/utils"
)

// SessionAuthenticator resolves a bearer token to the user it was issued for.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// RequireSession rejects requests without a valid session token and stores
// the authenticated user under the "user" and "user_id" locals.
func RequireSession(authenticator SessionAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		user, err := authenticator.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionExpired):
				return utils.SendError(c, fiber.StatusUnauthorized, "session expired")
			case errors.Is(err, auth.ErrSessionInvalid):
				return utils.SendError(c, fiber.StatusUnauthorized, "invalid session")
			default:
				return utils.SendError(c, fiber.StatusInternalServerError, "failed to verify session")
			}
		}

		c.Locals("user_id", user.ID)
		c.Locals("user", user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by RequireSession.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals("user").(models.User)
	return user, ok
}

func bearerToken(authorization string) (string, bool) {
	const bearer = "bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	return token, token != ""
}
