package gtfsrt

import (
	"context"
	"errors"
	"os"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/arrivals"
	"github.com/travigo/busalert/pkg/config"
	"github.com/travigo/busalert/pkg/util"
	"github.com/urfave/cli/v2"
	"google.golang.org/protobuf/encoding/prototext"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Inspect the GTFS-RT trip updates feed",
		Subcommands: []*cli.Command{
			{
				Name:  "dump",
				Usage: "write the decoded feed to a file as protobuf text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Value: "gtfs_feed.txt",
						Usage: "file to write the feed to",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(util.GetEnvironmentVariables())
					if err != nil {
						return err
					}

					feed, err := NewClient(cfg.FeedURL, cfg.Location).FetchFeed(context.Background())
					if err != nil {
						return err
					}

					text, err := prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(feed)
					if err != nil {
						return err
					}

					if err := os.WriteFile(c.String("output"), text, 0644); err != nil {
						return err
					}

					log.Info().
						Str("output", c.String("output")).
						Int("entities", len(feed.GetEntity())).
						Msg("Dumped GTFS-RT feed")

					return nil
				},
			},
			{
				Name:  "arrivals",
				Usage: "print the upcoming arrivals for a configured location",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "location",
						Required: true,
						Usage:    "location name from the route table",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(util.GetEnvironmentVariables())
					if err != nil {
						return err
					}

					route, ok := cfg.Route(c.String("location"))
					if !ok {
						return errors.New("location not found")
					}

					predictions, err := NewClient(cfg.FeedURL, cfg.Location).FetchArrivals(context.Background(), route.StopID, route.RouteID)
					if err != nil {
						return err
					}

					for _, prediction := range arrivals.Rank(predictions) {
						pretty.Println(arrivals.Format(prediction), prediction)
					}

					return nil
				},
			},
		},
	}
}
