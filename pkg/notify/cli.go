package notify

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/consumer"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/redis_client"
	"github.com/travigo/busalert/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Provides the notification system",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run notify consumers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "stats-listen",
						Usage: "address for the queue stats server",
						Value: ":3333",
					},
				},
				Action: func(c *cli.Context) error {
					token := util.GetEnvironmentVariables().String("TRAVIGO_TELEGRAM_TOKEN", "")
					if token == "" {
						return errors.New("TRAVIGO_TELEGRAM_TOKEN must be set")
					}

					if err := redis_client.Connect(); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       QueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewNotifyBatchConsumer(NewTelegramSender(token)),
						Connection:      redis_client.QueueConnection,
						RedisClient:     redis_client.Client,
						StatsAddress:    c.String("stats-listen"),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals
					go func() {
						<-signals // hard exit on second signal
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming()

					return nil
				},
			},
			{
				Name:  "send",
				Usage: "queue a test notification",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Usage:    "subscriber to notify",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "message",
						Value: "Test notification",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					notifier, err := NewQueueNotifier(redis_client.QueueConnection)
					if err != nil {
						return err
					}

					if err := notifier.Notify(c.Context, ctdf.Notification{
						TargetUser: c.String("target"),
						Type:       ctdf.NotificationTypeArrival,
						Title:      "Test",
						Message:    c.String("message"),
					}); err != nil {
						return err
					}

					log.Info().Str("target", c.String("target")).Msg("Queued test notification")

					return nil
				},
			},
		},
	}
}
