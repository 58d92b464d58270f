package ctdf

import "strings"

type RouteConfig struct {
	Location string `yaml:"location" validate:"required"`
	StopID   string `yaml:"stop_id" validate:"required"`
	RouteID  string `yaml:"route_id" validate:"required"`
}

// LocationKey normalises a user supplied location name to the lookup key used by the route table.
func LocationKey(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
