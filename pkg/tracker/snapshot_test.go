package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busalert/pkg/ctdf"
)

func newTestSnapshotCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshotCache(client, time.Hour), server
}

func TestSnapshotCache(t *testing.T) {
	assert := assert.New(t)

	snapshots, server := newTestSnapshotCache(t)
	ctx := context.Background()

	key := ctdf.SessionKey{SubscriberID: "42", Location: "gym"}
	next := time.Date(2025, time.March, 14, 13, 10, 0, 0, time.UTC)

	missing, err := snapshots.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(missing)

	require.NoError(t, snapshots.Save(ctx, ctdf.SessionSnapshot{
		SubscriberID:      "42",
		Location:          "gym",
		StartedAt:         time.Date(2025, time.March, 14, 13, 0, 0, 0, time.UTC),
		NextArrival:       &next,
		NotificationsSent: 1,
	}))
	assert.True(server.Exists("busalert/session/42/gym"))
	assert.Greater(server.TTL("busalert/session/42/gym"), time.Duration(0))

	snapshot, err := snapshots.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(1, snapshot.NotificationsSent)
	require.NotNil(t, snapshot.NextArrival)
	assert.True(next.Equal(*snapshot.NextArrival))

	require.NoError(t, snapshots.Delete(ctx, key))
	snapshot, err = snapshots.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(snapshot)
}
