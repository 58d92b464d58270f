package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/busalert/pkg/arrivals"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/gtfsrt"
	"github.com/travigo/busalert/pkg/tracker"
)

type upcomingArrival struct {
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	RouteID   string `json:"route_id"`
	StopID    string `json:"stop_id"`
}

func TrackingRouter(router fiber.Router, manager *tracker.Manager) {
	router.Get("/:subscriber", func(c *fiber.Ctx) error {
		return getTracking(c, manager)
	})
	router.Post("/:subscriber/:location", func(c *fiber.Ctx) error {
		return startTracking(c, manager)
	})
	router.Delete("/:subscriber/:location", func(c *fiber.Ctx) error {
		return stopTracking(c, manager)
	})
	router.Delete("/:subscriber", func(c *fiber.Ctx) error {
		return stopAllTracking(c, manager)
	})
}

func getTracking(c *fiber.Ctx, manager *tracker.Manager) error {
	return c.JSON(fiber.Map{
		"subscriber": c.Params("subscriber"),
		"trackers":   manager.RequestStatus(c.Context(), c.Params("subscriber")),
	})
}

func startTracking(c *fiber.Ctx, manager *tracker.Manager) error {
	location := c.Params("location")

	predictions, err := manager.RequestTracking(c.Context(), c.Params("subscriber"), location)
	if err != nil {
		return trackingError(c, err)
	}

	upcoming := make([]upcomingArrival, 0, len(predictions))
	for _, prediction := range predictions {
		upcoming = append(upcoming, upcomingArrival{
			Time:      arrivals.Format(prediction),
			Timestamp: prediction.Timestamp(),
			RouteID:   prediction.RouteID,
			StopID:    prediction.StopID,
		})
	}

	c.Status(fiber.StatusCreated)
	return c.JSON(fiber.Map{
		"location": ctdf.LocationKey(location),
		"upcoming": upcoming,
	})
}

func stopTracking(c *fiber.Ctx, manager *tracker.Manager) error {
	if err := manager.RequestStop(c.Params("subscriber"), c.Params("location")); err != nil {
		return trackingError(c, err)
	}

	return c.JSON(fiber.Map{
		"stopped": []string{ctdf.LocationKey(c.Params("location"))},
	})
}

func stopAllTracking(c *fiber.Ctx, manager *tracker.Manager) error {
	stopped, err := manager.RequestStopAll(c.Params("subscriber"))
	if err != nil {
		return trackingError(c, err)
	}

	return c.JSON(fiber.Map{
		"stopped": stopped,
	})
}

func trackingError(c *fiber.Ctx, err error) error {
	var unknownLocation *tracker.UnknownLocationError
	var fetchError *gtfsrt.FetchError

	switch {
	case errors.As(err, &unknownLocation):
		c.Status(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error":     err.Error(),
			"available": unknownLocation.Available,
		})
	case errors.Is(err, tracker.ErrRejectedDuplicate):
		c.Status(fiber.StatusConflict)
	case errors.Is(err, tracker.ErrSessionNotFound), errors.Is(err, tracker.ErrNoUpcomingArrivals):
		c.Status(fiber.StatusNotFound)
	case errors.Is(err, tracker.ErrInvalidArgs):
		c.Status(fiber.StatusBadRequest)
	case errors.As(err, &fetchError):
		c.Status(fiber.StatusBadGateway)
	case errors.Is(err, tracker.ErrRegistryClosed):
		c.Status(fiber.StatusServiceUnavailable)
	default:
		c.Status(fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}
