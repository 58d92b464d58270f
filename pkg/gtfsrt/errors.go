package gtfsrt

import "fmt"

type FetchErrorKind string

const (
	TransportFailure FetchErrorKind = "TransportFailure"
	DecodeFailure    FetchErrorKind = "DecodeFailure"
)

type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("gtfs-rt %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned (wrapped in a TransportFailure) when the feed endpoint responds
// with a non 2xx status.
type HTTPStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}
