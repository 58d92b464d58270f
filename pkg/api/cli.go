package api

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/config"
	"github.com/travigo/busalert/pkg/gtfsrt"
	"github.com/travigo/busalert/pkg/notify"
	"github.com/travigo/busalert/pkg/redis_client"
	"github.com/travigo/busalert/pkg/tracker"
	"github.com/travigo/busalert/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the tracking web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server and the session registry",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.BoolFlag{
						Name:  "redis",
						Usage: "queue notifications and cache session snapshots in redis",
					},
				},
				Action: func(c *cli.Context) error {
					env := util.GetEnvironmentVariables()

					cfg, err := config.Load(env)
					if err != nil {
						return err
					}

					var redisClient *redis.Client
					var notifier notify.Notifier
					var snapshots *tracker.SnapshotCache

					switch {
					case c.Bool("redis"):
						if err := redis_client.Connect(); err != nil {
							return err
						}
						redisClient = redis_client.Client

						queueNotifier, err := notify.NewQueueNotifier(redis_client.QueueConnection)
						if err != nil {
							return err
						}
						notifier = queueNotifier
						snapshots = tracker.NewSnapshotCache(redisClient, cfg.SessionDuration)
					case env.String("TRAVIGO_TELEGRAM_TOKEN", "") != "":
						notifier = &notify.SenderNotifier{Sender: notify.NewTelegramSender(env["TRAVIGO_TELEGRAM_TOKEN"])}
					default:
						log.Warn().Msg("No notification transport configured, notifications will only be logged")
						notifier = notify.LogNotifier{}
					}

					manager := tracker.NewManager(cfg, gtfsrt.NewClient(cfg.FeedURL, cfg.Location), notifier, snapshots)

					for _, location := range cfg.Locations() {
						route, _ := cfg.Route(location)
						log.Info().Str("location", location).Str("stop", route.StopID).Str("route", route.RouteID).Msg("Loaded location")
					}

					return SetupServer(c.String("listen"), manager, redisClient)
				},
			},
		},
	}
}
