package version

import (
	appver "overseerr-about/internal/version"

	"github.com/gofiber/fiber/v3"
)

// GET /api/version reports this service's own build info.
func GetVersion() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(appver.Current())
	}
}
