package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/api"
	"github.com/travigo/busalert/pkg/gtfsrt"
	"github.com/travigo/busalert/pkg/notify"
	"github.com/travigo/busalert/pkg/tracker"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("TRAVIGO_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TRAVIGO_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "busalert",
		Description: "Live bus arrival alerts from a GTFS-realtime feed",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			tracker.RegisterCLI(),
			notify.RegisterCLI(),
			gtfsrt.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
