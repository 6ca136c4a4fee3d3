package middleware

import (
	"crypto/subtle"
	"strings"

	"overseerr-about/internal/logging"

	"github.com/gofiber/fiber/v3"
)

// AdminAuth protects operator endpoints. An empty token disables the check;
// main logs a warning at startup when that happens.
func AdminAuth(adminToken string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if adminToken == "" {
			return c.Next()
		}

		// Authorization: Bearer <token>
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			scheme, token, found := strings.Cut(authHeader, " ")
			if found && strings.EqualFold(scheme, "bearer") && constantTimeCompare(token, adminToken) {
				return c.Next()
			}
		}

		if tokenHeader := c.Get("X-Admin-Token"); tokenHeader != "" && constantTimeCompare(tokenHeader, adminToken) {
			return c.Next()
		}

		logging.Warn("Rejected admin request", "path", c.Path(), "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "Valid admin token required. Use 'Authorization: Bearer <token>' or 'X-Admin-Token: <token>' header.",
		})
	}
}

// constantTimeCompare performs constant-time string comparison to prevent timing attacks
func constantTimeCompare(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
