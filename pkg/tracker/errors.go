package tracker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRejectedDuplicate  = errors.New("tracker already running")
	ErrRegistryClosed     = errors.New("registry is shutting down")
	ErrInvalidArgs        = errors.New("invalid arguments")
	ErrUnknownLocation    = errors.New("location not found")
	ErrSessionNotFound    = errors.New("no active bus tracker found")
	ErrNoUpcomingArrivals = errors.New("no upcoming buses found")
)

// UnknownLocationError carries the configured locations so the requester can be told what
// is available.
type UnknownLocationError struct {
	Location  string
	Available []string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("location %q not found, available locations: %s", e.Location, strings.Join(e.Available, ", "))
}

func (e *UnknownLocationError) Is(target error) bool {
	return target == ErrUnknownLocation
}
