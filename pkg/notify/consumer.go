package notify

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/ctdf"
)

type NotifyBatchConsumer struct {
	Sender Sender
}

func NewNotifyBatchConsumer(sender Sender) *NotifyBatchConsumer {
	return &NotifyBatchConsumer{Sender: sender}
}

// Consume delivers every notification in the batch. Delivered payloads are acked, payloads
// that cannot be decoded or delivered are rejected.
func (c *NotifyBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		var notification ctdf.Notification

		if err := json.Unmarshal([]byte(delivery.Payload()), &notification); err != nil {
			log.Error().Err(err).Msg("Failed to decode notification")
			c.reject(delivery)
			continue
		}

		if err := c.Sender.Send(context.Background(), notification); err != nil {
			log.Error().Err(err).Str("target", notification.TargetUser).Msg("Failed to deliver notification")
			c.reject(delivery)
			continue
		}

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack notification")
		}
	}
}

func (c *NotifyBatchConsumer) reject(delivery rmq.Delivery) {
	if err := delivery.Reject(); err != nil {
		log.Error().Err(err).Msg("Failed to reject notification")
	}
}
