// Package config loads the busalert runtime configuration from the environment and the
// optional YAML route table.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/util"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	_ "time/tzdata"
)

const (
	DefaultFeedURL                = "https://webapps.regionofwaterloo.ca/api/grt-routes/api/tripupdates"
	DefaultTimezone               = "America/Toronto"
	DefaultPollInterval           = 60 * time.Second
	DefaultSessionDuration        = 70 * time.Minute
	DefaultNotifyWindowMin        = 9 * time.Minute
	DefaultNotifyWindowMax        = 11 * time.Minute
	DefaultMaxConsecutiveFailures = 10
	DefaultUpcomingCount          = 3
)

// DefaultRoutes is used when no routes file is configured.
var DefaultRoutes = []ctdf.RouteConfig{
	{Location: "gym", StopID: "1168", RouteID: "19"},
}

type Config struct {
	FeedURL  string         `validate:"required,url"`
	Timezone string         `validate:"required"`
	Location *time.Location `validate:"required"`

	PollInterval    time.Duration `validate:"gt=0"`
	SessionDuration time.Duration `validate:"gt=0"`
	NotifyWindowMin time.Duration `validate:"gte=0"`
	NotifyWindowMax time.Duration `validate:"gtefield=NotifyWindowMin"`

	// MaxConsecutiveFailures stops a session after that many failed polls in a row, 0 disables.
	MaxConsecutiveFailures int `validate:"gte=0"`
	UpcomingCount          int `validate:"gt=0"`

	Routes map[string]ctdf.RouteConfig `validate:"required,min=1,dive"`
}

type routesFile struct {
	Routes []ctdf.RouteConfig `yaml:"routes"`
}

func Load(env util.Environment) (*Config, error) {
	var err error

	cfg := &Config{
		FeedURL:  env.String("TRAVIGO_BUSALERT_FEED_URL", DefaultFeedURL),
		Timezone: env.String("TRAVIGO_BUSALERT_TIMEZONE", DefaultTimezone),
	}

	if cfg.PollInterval, err = env.Duration("TRAVIGO_BUSALERT_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.SessionDuration, err = env.Duration("TRAVIGO_BUSALERT_SESSION_DURATION", DefaultSessionDuration); err != nil {
		return nil, err
	}
	if cfg.NotifyWindowMin, err = env.Duration("TRAVIGO_BUSALERT_NOTIFY_MIN", DefaultNotifyWindowMin); err != nil {
		return nil, err
	}
	if cfg.NotifyWindowMax, err = env.Duration("TRAVIGO_BUSALERT_NOTIFY_MAX", DefaultNotifyWindowMax); err != nil {
		return nil, err
	}
	if cfg.MaxConsecutiveFailures, err = env.Int("TRAVIGO_BUSALERT_MAX_FAILURES", DefaultMaxConsecutiveFailures); err != nil {
		return nil, err
	}
	if cfg.UpcomingCount, err = env.Int("TRAVIGO_BUSALERT_UPCOMING_COUNT", DefaultUpcomingCount); err != nil {
		return nil, err
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	routes := DefaultRoutes
	if routesPath := env["TRAVIGO_BUSALERT_ROUTES"]; routesPath != "" {
		data, err := os.ReadFile(routesPath)
		if err != nil {
			return nil, err
		}

		routes, err = ParseRoutes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", routesPath, err)
		}
	}

	cfg.Routes, err = BuildRouteTable(routes)
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func ParseRoutes(data []byte) ([]ctdf.RouteConfig, error) {
	var file routesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	return file.Routes, nil
}

// BuildRouteTable keys the routes by their lowercased location name and rejects duplicates.
func BuildRouteTable(routes []ctdf.RouteConfig) (map[string]ctdf.RouteConfig, error) {
	v := validator.New()
	table := make(map[string]ctdf.RouteConfig, len(routes))

	for _, route := range routes {
		if err := v.Struct(route); err != nil {
			return nil, err
		}

		key := ctdf.LocationKey(route.Location)
		if _, exists := table[key]; exists {
			return nil, fmt.Errorf("duplicate location %q", key)
		}

		route.Location = key
		table[key] = route
	}

	return table, nil
}

func (c *Config) Route(location string) (ctdf.RouteConfig, bool) {
	route, ok := c.Routes[ctdf.LocationKey(location)]
	return route, ok
}

// Locations returns the known location names in alphabetical order.
func (c *Config) Locations() []string {
	locations := make([]string, 0, len(c.Routes))
	for location := range c.Routes {
		locations = append(locations, location)
	}
	slices.Sort(locations)

	return locations
}
