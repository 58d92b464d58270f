package gtfsrt

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/travigo/busalert/pkg/ctdf"
)

// ParseArrivals extracts the predictions for routeID at stopID that are strictly after now.
// Times are converted into location. A stop time without an arrival time falls back to its
// departure time, stop times with neither are skipped.
func ParseArrivals(feed *gtfs.FeedMessage, stopID string, routeID string, now time.Time, location *time.Location) []ctdf.ArrivalPrediction {
	var arrivals []ctdf.ArrivalPrediction

	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		if tripUpdate.GetTrip().GetRouteId() != routeID {
			continue
		}

		for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
			if stopTimeUpdate.GetStopId() != stopID {
				continue
			}

			timestamp := stopTimeUpdate.GetArrival().GetTime()
			if timestamp == 0 {
				timestamp = stopTimeUpdate.GetDeparture().GetTime()
			}
			if timestamp == 0 {
				continue
			}

			arrivalTime := time.Unix(timestamp, 0).In(location)
			if !arrivalTime.After(now) {
				continue
			}

			arrivals = append(arrivals, ctdf.ArrivalPrediction{
				ArrivalTime: arrivalTime,
				RouteID:     routeID,
				StopID:      stopID,
			})
		}
	}

	return arrivals
}
