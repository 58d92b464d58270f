package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busalert/pkg/config"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/gtfsrt"
	"github.com/travigo/busalert/pkg/notify"
	"github.com/travigo/busalert/pkg/tracker"
)

type stubSource struct {
	predictions []ctdf.ArrivalPrediction
	err         error
}

func (s *stubSource) FetchArrivals(context.Context, string, string) ([]ctdf.ArrivalPrediction, error) {
	return s.predictions, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		FeedURL:                config.DefaultFeedURL,
		Timezone:               "UTC",
		Location:               time.UTC,
		PollInterval:           time.Hour,
		SessionDuration:        time.Hour,
		NotifyWindowMin:        config.DefaultNotifyWindowMin,
		NotifyWindowMax:        config.DefaultNotifyWindowMax,
		MaxConsecutiveFailures: config.DefaultMaxConsecutiveFailures,
		UpcomingCount:          2,
		Routes: map[string]ctdf.RouteConfig{
			"gym": {Location: "gym", StopID: "1168", RouteID: "19"},
		},
	}
}

func newTestApp(t *testing.T, source tracker.ArrivalSource, redisClient *redis.Client) *fiber.App {
	app, _ := newTestAppWithManager(t, source, redisClient)
	return app
}

func newTestAppWithManager(t *testing.T, source tracker.ArrivalSource, redisClient *redis.Client) (*fiber.App, *tracker.Manager) {
	manager := tracker.NewManager(testConfig(), source, notify.LogNotifier{}, nil)
	t.Cleanup(manager.Shutdown)

	return NewApp(manager, redisClient), manager
}

func upcoming() *stubSource {
	now := time.Now()

	return &stubSource{
		predictions: []ctdf.ArrivalPrediction{
			{ArrivalTime: now.Add(30 * time.Minute), RouteID: "19", StopID: "1168"},
			{ArrivalTime: now.Add(12 * time.Minute), RouteID: "19", StopID: "1168"},
			{ArrivalTime: now.Add(50 * time.Minute), RouteID: "19", StopID: "1168"},
		},
	}
}

func doRequest(t *testing.T, app *fiber.App, method string, target string) (int, map[string]any) {
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(body) > 0 && body[0] == '{' {
		require.NoError(t, json.Unmarshal(body, &decoded))
	}

	return resp.StatusCode, decoded
}

func TestLocations(t *testing.T) {
	app := newTestApp(t, upcoming(), nil)

	status, body := doRequest(t, app, http.MethodGet, "/locations")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"gym"}, body["locations"])
}

func TestTrackingLifecycle(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t, upcoming(), nil)

	status, body := doRequest(t, app, http.MethodPost, "/tracking/42/gym")
	assert.Equal(http.StatusCreated, status)
	assert.Equal("gym", body["location"])
	require.Len(t, body["upcoming"], 2)

	first := body["upcoming"].([]any)[0].(map[string]any)
	assert.Equal("19", first["route_id"])
	assert.Regexp(`^\d{2}:\d{2} (AM|PM)$`, first["time"])

	status, _ = doRequest(t, app, http.MethodPost, "/tracking/42/gym")
	assert.Equal(http.StatusConflict, status)

	status, body = doRequest(t, app, http.MethodGet, "/tracking/42")
	assert.Equal(http.StatusOK, status)
	require.Len(t, body["trackers"], 1)
	assert.Equal("gym", body["trackers"].([]any)[0].(map[string]any)["location"])

	status, _ = doRequest(t, app, http.MethodDelete, "/tracking/42/gym")
	assert.Equal(http.StatusOK, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/tracking/42/gym")
	assert.Equal(http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/tracking/42")
	assert.Equal(http.StatusNotFound, status)
}

func TestTrackingKeySurvivesLaterRequests(t *testing.T) {
	assert := assert.New(t)
	app, manager := newTestAppWithManager(t, upcoming(), nil)

	status, _ := doRequest(t, app, http.MethodPost, "/tracking/4242/gym")
	require.Equal(t, http.StatusCreated, status)

	status, _ = doRequest(t, app, http.MethodGet, "/tracking/9999")
	require.Equal(t, http.StatusOK, status)

	assert.Equal([]string{"gym"}, manager.Registry.ListActive("4242"))
	assert.Empty(manager.Registry.ListActive("9999"))

	status, _ = doRequest(t, app, http.MethodPost, "/tracking/4242/gym")
	assert.Equal(http.StatusConflict, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/tracking/4242/gym")
	assert.Equal(http.StatusOK, status)
}

func TestTrackingStopAll(t *testing.T) {
	app := newTestApp(t, upcoming(), nil)

	status, _ := doRequest(t, app, http.MethodPost, "/tracking/42/gym")
	require.Equal(t, http.StatusCreated, status)

	status, body := doRequest(t, app, http.MethodDelete, "/tracking/42")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"gym"}, body["stopped"])
}

func TestTrackingErrors(t *testing.T) {
	t.Run("unknown location", func(t *testing.T) {
		status, body := doRequest(t, newTestApp(t, upcoming(), nil), http.MethodPost, "/tracking/42/pool")

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, []any{"gym"}, body["available"])
	})

	t.Run("feed failure", func(t *testing.T) {
		source := &stubSource{err: &gtfsrt.FetchError{Kind: gtfsrt.DecodeFailure, Err: errors.New("truncated")}}
		status, body := doRequest(t, newTestApp(t, source, nil), http.MethodPost, "/tracking/42/gym")

		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, body["error"], "truncated")
	})

	t.Run("no upcoming arrivals", func(t *testing.T) {
		status, _ := doRequest(t, newTestApp(t, &stubSource{}, nil), http.MethodPost, "/tracking/42/gym")

		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealth(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := newTestApp(t, upcoming(), client)

	status, _ := doRequest(t, app, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, status)

	server.Close()

	status, body := doRequest(t, app, http.MethodGet, "/health")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotEmpty(t, body["error"])
}

func TestVersion(t *testing.T) {
	status, body := doRequest(t, newTestApp(t, upcoming(), nil), http.MethodGet, "/version")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "busalert", body["service"])
	assert.Equal(t, "dev", body["version"])
}

func TestLoggerSetsRequestID(t *testing.T) {
	app := newTestApp(t, upcoming(), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/version", nil), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))
}
