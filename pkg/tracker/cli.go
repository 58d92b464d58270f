package tracker

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/arrivals"
	"github.com/travigo/busalert/pkg/config"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/gtfsrt"
	"github.com/travigo/busalert/pkg/notify"
	"github.com/travigo/busalert/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Arrival tracking sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "run a single tracking session in the foreground, logging its notifications",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "location",
						Usage:    "configured location to track",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "subscriber",
						Value: "cli",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(util.GetEnvironmentVariables())
					if err != nil {
						return err
					}

					route, exists := cfg.Route(c.String("location"))
					if !exists {
						return &UnknownLocationError{Location: c.String("location"), Available: cfg.Locations()}
					}

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					source := gtfsrt.NewClient(cfg.FeedURL, cfg.Location)

					predictions, err := source.FetchArrivals(ctx, route.StopID, route.RouteID)
					if err != nil {
						return err
					}
					for _, prediction := range arrivals.Next(predictions, cfg.UpcomingCount) {
						log.Info().Str("route", prediction.RouteID).Str("time", arrivals.Format(prediction)).Msg("Upcoming bus")
					}

					key := ctdf.SessionKey{SubscriberID: c.String("subscriber"), Location: ctdf.LocationKey(c.String("location"))}
					session := NewSession(key, route, source, notify.LogNotifier{}, sessionConfig(cfg))

					reason := session.Run(ctx)
					log.Info().Str("reason", string(reason)).Msg("Watch finished")

					return nil
				},
			},
		},
	}
}
