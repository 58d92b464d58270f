package redis_client

import (
	"context"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0
const defaultConnectTimeout = 30 * time.Second

const queueConnectionTag = "busalert"

func Connect() error {
	env := util.GetEnvironmentVariables()

	database, err := env.Int("TRAVIGO_REDIS_DATABASE", defaultDatabase)
	if err != nil {
		return err
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     env.String("TRAVIGO_REDIS_ADDRESS", defaultConnectionAddress),
		Password: env.String("TRAVIGO_REDIS_PASSWORD", defaultConnectionPassword),
		DB:       database,
	})

	if err := ping(Client, defaultConnectTimeout); err != nil {
		return err
	}

	QueueConnection, err = rmq.OpenConnectionWithRedisClient(queueConnectionTag, Client, nil)
	if err != nil {
		return err
	}

	return nil
}

// ping waits for redis to come up, giving up after timeout.
func ping(client *redis.Client, timeout time.Duration) error {
	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.MaxElapsedTime = timeout

	return backoff.RetryNotify(
		func() error {
			return client.Ping(context.Background()).Err()
		},
		connectBackoff,
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("address", client.Options().Addr).Dur("wait", wait).Msg("Redis not ready")
		},
	)
}
