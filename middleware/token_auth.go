package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// BearerTokenMiddleware guards operator endpoints (metrics) with a static
// token. An empty expected token disables the check.
func BearerTokenMiddleware(expectedToken string) fiber.Handler {
	log := logrus.WithField("component", "token_auth")
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.WithField("path", c.Path()).Warn("missing Authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "authentication token missing",
				Code:  "auth_required",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.WithField("path", c.Path()).Warn("invalid bearer token")
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "invalid authentication token",
				Code:  "auth_required",
			})
		}
		return c.Next()
	}
}
