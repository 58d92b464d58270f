package arrivals

import (
	"time"

	"github.com/travigo/busalert/pkg/ctdf"
)

// NotificationWindow decides when an upcoming arrival should alert the subscriber.
// Each arrival timestamp alerts at most once for the lifetime of the window, so the same
// prediction reappearing in later polls is ignored. Not safe for concurrent use, a window
// belongs to a single session loop.
type NotificationWindow struct {
	min time.Duration
	max time.Duration

	notified map[int64]struct{}
}

func NewNotificationWindow(min time.Duration, max time.Duration) *NotificationWindow {
	return &NotificationWindow{
		min:      min,
		max:      max,
		notified: map[int64]struct{}{},
	}
}

// ShouldNotify reports whether prediction is inside the window at now and has not alerted
// before. A true result records the arrival timestamp.
func (w *NotificationWindow) ShouldNotify(prediction ctdf.ArrivalPrediction, now time.Time) bool {
	until := prediction.Until(now)
	if until < w.min || until > w.max {
		return false
	}

	key := prediction.Timestamp()
	if _, sent := w.notified[key]; sent {
		return false
	}

	w.notified[key] = struct{}{}

	return true
}

// Len is the number of arrivals that have triggered a notification.
func (w *NotificationWindow) Len() int {
	return len(w.notified)
}
