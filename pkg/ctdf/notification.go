package ctdf

import "time"

type Notification struct {
	TargetUser string
	Type       NotificationType

	Title   string
	Message string

	RouteID      string
	StopID       string
	ArrivalTime  time.Time
	MinutesUntil int
}

type NotificationType string

const (
	NotificationTypeArrival      NotificationType = "Arrival"
	NotificationTypeTrackerEnded NotificationType = "TrackerEnded"
)
