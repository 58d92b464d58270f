package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Environment map[string]string

func GetEnvironmentVariables() Environment {
	environmentVariables := Environment{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

func (e Environment) String(name string, fallback string) string {
	if value := e[name]; value != "" {
		return value
	}

	return fallback
}

func (e Environment) Duration(name string, fallback time.Duration) (time.Duration, error) {
	value := e[name]
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	return parsed, nil
}

func (e Environment) Int(name string, fallback int) (int, error) {
	value := e[name]
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	return parsed, nil
}
