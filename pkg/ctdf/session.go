package ctdf

import (
	"fmt"
	"time"
)

type SessionKey struct {
	SubscriberID string
	Location     string
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s", k.SubscriberID, k.Location)
}

type SessionStatus string

const (
	SessionStatusRunning       SessionStatus = "Running"
	SessionStatusStopRequested SessionStatus = "StopRequested"
)

type StopReason string

const (
	StopReasonExpired   StopReason = "Expired"
	StopReasonCancelled StopReason = "Cancelled"
	StopReasonError     StopReason = "Error"
)

// SessionSnapshot is the last observed state of a running session, kept for status replies.
type SessionSnapshot struct {
	SubscriberID string    `json:"subscriber_id"`
	Location     string    `json:"location"`
	StartedAt    time.Time `json:"started_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastPoll     time.Time `json:"last_poll"`

	NextArrival         *time.Time `json:"next_arrival,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	NotificationsSent   int        `json:"notifications_sent"`
}
