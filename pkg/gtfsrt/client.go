// Package gtfsrt fetches the GTFS-Realtime trip updates feed and turns it into arrival
// predictions for a single stop and route.
package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/ctdf"
	"google.golang.org/protobuf/proto"
)

const defaultUserAgent = "curl/7.54.1"

type Client struct {
	URL      string
	Location *time.Location

	HTTPClient *http.Client
	UserAgent  string

	// Now is used for the future-only filter, defaults to time.Now.
	Now func() time.Time
}

func NewClient(url string, location *time.Location) *Client {
	return &Client{
		URL:        url,
		Location:   location,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UserAgent:  defaultUserAgent,
		Now:        time.Now,
	}
}

// FetchFeed downloads and decodes the whole feed. Every failure is returned as a *FetchError.
func (c *Client) FetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	body, err := c.download(ctx)
	if err != nil {
		return nil, &FetchError{Kind: TransportFailure, Err: err}
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, &FetchError{Kind: DecodeFailure, Err: err}
	}

	log.Debug().
		Str("url", c.URL).
		Int("bytes", len(body)).
		Int("entities", len(feed.GetEntity())).
		Msg("Fetched GTFS-RT feed")

	return feed, nil
}

// FetchArrivals returns the future arrivals of routeID at stopID in feed order.
// No retries are made and nothing is cached between calls.
func (c *Client) FetchArrivals(ctx context.Context, stopID string, routeID string) ([]ctdf.ArrivalPrediction, error) {
	feed, err := c.FetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	return ParseArrivals(feed, stopID, routeID, c.now(), c.location()), nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{
			URL:        resp.Request.URL.Redacted(),
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}
