package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// LogSource exposes recently logged lines.
type LogSource interface {
	Lines() []string
}

// Health reports liveness and the active provider.
func Health(provider, version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"version":  version,
			"provider": provider,
		})
	}
}

// Logs returns the buffered server log.
func Logs(src LogSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": src.Lines(),
		})
	}
}
