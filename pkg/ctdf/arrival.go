package ctdf

import "time"

// ArrivalPrediction is a single predicted arrival of a route at a stop, as read from the
// realtime feed. Predictions are produced fresh on every fetch and never persisted.
type ArrivalPrediction struct {
	ArrivalTime time.Time
	RouteID     string
	StopID      string
}

// Timestamp is the arrival time in epoch seconds, used as the notification dedup key.
func (a ArrivalPrediction) Timestamp() int64 {
	return a.ArrivalTime.Unix()
}

func (a ArrivalPrediction) Until(now time.Time) time.Duration {
	return a.ArrivalTime.Sub(now)
}

// MinutesUntil truncates towards zero, so 10m59s is reported as 10.
func (a ArrivalPrediction) MinutesUntil(now time.Time) int {
	return int(a.Until(now).Minutes())
}
