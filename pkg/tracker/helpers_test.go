package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/travigo/busalert/pkg/ctdf"
)

type fakeSource struct {
	calls atomic.Int32
	fetch func(call int) ([]ctdf.ArrivalPrediction, error)
}

func (s *fakeSource) FetchArrivals(ctx context.Context, stopID string, routeID string) ([]ctdf.ArrivalPrediction, error) {
	call := int(s.calls.Add(1))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.fetch(call)
}

func staticSource(predictions ...ctdf.ArrivalPrediction) *fakeSource {
	return &fakeSource{
		fetch: func(int) ([]ctdf.ArrivalPrediction, error) {
			return predictions, nil
		},
	}
}

type recordingNotifier struct {
	mutex         sync.Mutex
	notifications []ctdf.Notification
	err           error
}

func (n *recordingNotifier) Notify(_ context.Context, notification ctdf.Notification) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.err != nil {
		return n.err
	}

	n.notifications = append(n.notifications, notification)

	return nil
}

func (n *recordingNotifier) sent() []ctdf.Notification {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return append([]ctdf.Notification{}, n.notifications...)
}

func (n *recordingNotifier) sentOfType(notificationType ctdf.NotificationType) []ctdf.Notification {
	var matching []ctdf.Notification
	for _, notification := range n.sent() {
		if notification.Type == notificationType {
			matching = append(matching, notification)
		}
	}

	return matching
}

type recordingSnapshots struct {
	mutex   sync.Mutex
	saved   int
	deleted []ctdf.SessionKey
}

func (r *recordingSnapshots) Save(context.Context, ctdf.SessionSnapshot) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.saved++
	return nil
}

func (r *recordingSnapshots) Delete(_ context.Context, key ctdf.SessionKey) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.deleted = append(r.deleted, key)
	return nil
}

var gymRoute = ctdf.RouteConfig{Location: "gym", StopID: "1168", RouteID: "19"}

func arrivalAt(t time.Time) ctdf.ArrivalPrediction {
	return ctdf.ArrivalPrediction{ArrivalTime: t, RouteID: gymRoute.RouteID, StopID: gymRoute.StopID}
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		PollInterval:           60 * time.Second,
		Duration:               70 * time.Minute,
		NotifyWindowMin:        9 * time.Minute,
		NotifyWindowMax:        11 * time.Minute,
		MaxConsecutiveFailures: 10,
	}
}
