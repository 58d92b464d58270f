package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/adjust/rmq/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busalert/pkg/ctdf"
)

type recordingSender struct {
	sent []ctdf.Notification
	err  error
}

func (s *recordingSender) Send(_ context.Context, notification ctdf.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, notification)
	return nil
}

func TestQueueNotifierPublishes(t *testing.T) {
	connection := rmq.NewTestConnection()

	notifier, err := NewQueueNotifier(connection)
	require.NoError(t, err)

	notification := ctdf.Notification{
		TargetUser:   "12345",
		Type:         ctdf.NotificationTypeArrival,
		Message:      "Bus 19 arriving in around 8 minutes",
		RouteID:      "19",
		MinutesUntil: 8,
	}
	require.NoError(t, notifier.Notify(context.Background(), notification))

	deliveries := connection.GetDeliveries(QueueName)
	require.Len(t, deliveries, 1)

	var published ctdf.Notification
	require.NoError(t, json.Unmarshal([]byte(deliveries[0]), &published))
	assert.Equal(t, notification, published)
}

func TestSenderNotifier(t *testing.T) {
	sender := &recordingSender{}
	notifier := &SenderNotifier{Sender: sender}

	require.NoError(t, notifier.Notify(context.Background(), ctdf.Notification{TargetUser: "a"}))
	assert.Len(t, sender.sent, 1)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), ctdf.Notification{Message: "hello"}))
}
