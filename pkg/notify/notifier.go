// Package notify delivers tracker notifications to subscribers, either directly or through
// the redis backed notify queue.
package notify

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/ctdf"
)

const QueueName = "notify-queue"

// Notifier must be safe to call from any session goroutine.
type Notifier interface {
	Notify(ctx context.Context, notification ctdf.Notification) error
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, notification ctdf.Notification) error {
	log.Info().
		Str("target", notification.TargetUser).
		Str("type", string(notification.Type)).
		Str("route", notification.RouteID).
		Msg(notification.Message)

	return nil
}

// SenderNotifier delivers in the calling goroutine.
type SenderNotifier struct {
	Sender Sender
}

func (n *SenderNotifier) Notify(ctx context.Context, notification ctdf.Notification) error {
	return n.Sender.Send(ctx, notification)
}

// QueueNotifier hands notifications to the notify consumers over rmq.
type QueueNotifier struct {
	queue rmq.Queue
}

func NewQueueNotifier(connection rmq.Connection) (*QueueNotifier, error) {
	queue, err := connection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}

	return &QueueNotifier{queue: queue}, nil
}

func (n *QueueNotifier) Notify(_ context.Context, notification ctdf.Notification) error {
	notificationBytes, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	return n.queue.PublishBytes(notificationBytes)
}
