package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/busalert/pkg/tracker"
)

func LocationsRouter(router fiber.Router, manager *tracker.Manager) {
	router.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"locations": manager.Locations(),
		})
	})
}
