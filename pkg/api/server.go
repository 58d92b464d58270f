package api

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/api/routes"
	"github.com/travigo/busalert/pkg/tracker"
)

// NewApp builds the web app. redisClient may be nil when the service runs without redis.
func NewApp(manager *tracker.Manager, redisClient *redis.Client) *fiber.App {
	webApp := fiber.New(fiber.Config{
		// route params become registry keys and outlive the request
		Immutable:             true,
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/version", routes.APIVersion)
	webApp.Get("/health", routes.Health(redisClient))

	routes.LocationsRouter(webApp.Group("/locations"), manager)
	routes.TrackingRouter(webApp.Group("/tracking"), manager)

	return webApp
}

// SetupServer serves the API until SIGINT or SIGTERM, then stops every running session.
func SetupServer(listen string, manager *tracker.Manager, redisClient *redis.Client) error {
	webApp := NewApp(manager, redisClient)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		<-signals
		log.Info().Msg("Shutting down")

		if err := webApp.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to shut down web server")
		}
	}()

	log.Info().Str("listen", listen).Msg("Starting web server")
	err := webApp.Listen(listen)

	manager.Shutdown()

	return err
}
