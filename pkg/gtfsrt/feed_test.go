package gtfsrt

import (
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

type testStopTime struct {
	stopID    string
	arrival   int64
	departure int64
}

type testTrip struct {
	tripID    string
	routeID   string
	stopTimes []testStopTime
}

func buildFeed(trips ...testTrip) *gtfs.FeedMessage {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
		},
	}

	for _, trip := range trips {
		tripUpdate := &gtfs.TripUpdate{
			Trip: &gtfs.TripDescriptor{
				TripId:  proto.String(trip.tripID),
				RouteId: proto.String(trip.routeID),
			},
		}

		for _, stopTime := range trip.stopTimes {
			update := &gtfs.TripUpdate_StopTimeUpdate{
				StopId: proto.String(stopTime.stopID),
			}
			if stopTime.arrival != 0 {
				update.Arrival = &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(stopTime.arrival)}
			}
			if stopTime.departure != 0 {
				update.Departure = &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(stopTime.departure)}
			}
			tripUpdate.StopTimeUpdate = append(tripUpdate.StopTimeUpdate, update)
		}

		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:         proto.String(trip.tripID),
			TripUpdate: tripUpdate,
		})
	}

	return feed
}

func marshalFeed(t *testing.T, feed *gtfs.FeedMessage) []byte {
	t.Helper()

	body, err := proto.Marshal(feed)
	require.NoError(t, err)

	return body
}
