package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func Health(redisClient *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if redisClient != nil {
			if err := redisClient.Ping(c.Context()).Err(); err != nil {
				c.Status(fiber.StatusInternalServerError)
				return c.JSON(fiber.Map{
					"error": err.Error(),
				})
			}
		}

		return c.SendString("OK")
	}
}
