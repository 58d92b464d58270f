package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/busalert/pkg/ctdf"
)

// SnapshotCache keeps the latest snapshot of each running session in redis so status
// requests can report on them.
type SnapshotCache struct {
	cache *cache.Cache[string]
}

func NewSnapshotCache(client *redis.Client, expiration time.Duration) *SnapshotCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &SnapshotCache{
		cache: cache.New[string](redisStore),
	}
}

func snapshotCacheKey(key ctdf.SessionKey) string {
	return fmt.Sprintf("busalert/session/%s", key)
}

func (c *SnapshotCache) Save(ctx context.Context, snapshot ctdf.SessionSnapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	key := ctdf.SessionKey{SubscriberID: snapshot.SubscriberID, Location: snapshot.Location}

	return c.cache.Set(ctx, snapshotCacheKey(key), string(snapshotJSON))
}

// Get returns nil without an error when nothing is cached for key.
func (c *SnapshotCache) Get(ctx context.Context, key ctdf.SessionKey) (*ctdf.SessionSnapshot, error) {
	value, err := c.cache.Get(ctx, snapshotCacheKey(key))
	if errors.Is(err, store.NotFound{}) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var snapshot ctdf.SessionSnapshot
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

func (c *SnapshotCache) Delete(ctx context.Context, key ctdf.SessionKey) error {
	return c.cache.Delete(ctx, snapshotCacheKey(key))
}
