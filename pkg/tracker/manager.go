package tracker

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/arrivals"
	"github.com/travigo/busalert/pkg/config"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/notify"
)

// Manager is the request surface over the registry. It resolves locations, fetches the
// initial arrivals and starts sessions.
type Manager struct {
	Config   *config.Config
	Source   ArrivalSource
	Notifier notify.Notifier
	Registry *Registry

	// Snapshots is optional
	Snapshots *SnapshotCache
}

type SessionStatus struct {
	Location string                `json:"location"`
	Snapshot *ctdf.SessionSnapshot `json:"snapshot,omitempty"`
}

func NewManager(cfg *config.Config, source ArrivalSource, notifier notify.Notifier, snapshots *SnapshotCache) *Manager {
	return &Manager{
		Config:    cfg,
		Source:    source,
		Notifier:  notifier,
		Registry:  NewRegistry(),
		Snapshots: snapshots,
	}
}

// newSessionKey copies both strings, the key is held by the registry for the whole session.
func newSessionKey(subscriberID string, location string) ctdf.SessionKey {
	return ctdf.SessionKey{
		SubscriberID: strings.Clone(subscriberID),
		Location:     strings.Clone(ctdf.LocationKey(location)),
	}
}

func sessionConfig(cfg *config.Config) SessionConfig {
	return SessionConfig{
		PollInterval:           cfg.PollInterval,
		Duration:               cfg.SessionDuration,
		NotifyWindowMin:        cfg.NotifyWindowMin,
		NotifyWindowMax:        cfg.NotifyWindowMax,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	}
}

func (m *Manager) Locations() []string {
	return m.Config.Locations()
}

func (m *Manager) resolve(location string) (ctdf.RouteConfig, error) {
	route, exists := m.Config.Route(location)
	if !exists {
		return ctdf.RouteConfig{}, &UnknownLocationError{
			Location:  ctdf.LocationKey(location),
			Available: m.Locations(),
		}
	}

	return route, nil
}

// RequestTracking returns the next few arrivals for location and starts a session for the
// subscriber. Fetch errors are returned as is and no session is started.
func (m *Manager) RequestTracking(ctx context.Context, subscriberID string, location string) ([]ctdf.ArrivalPrediction, error) {
	if strings.TrimSpace(subscriberID) == "" || strings.TrimSpace(location) == "" {
		return nil, ErrInvalidArgs
	}

	route, err := m.resolve(location)
	if err != nil {
		return nil, err
	}

	key := newSessionKey(subscriberID, location)

	if m.Registry.IsRunning(key) {
		return nil, ErrRejectedDuplicate
	}

	predictions, err := m.Source.FetchArrivals(ctx, route.StopID, route.RouteID)
	if err != nil {
		return nil, err
	}

	upcoming := arrivals.Next(predictions, m.Config.UpcomingCount)
	if len(upcoming) == 0 {
		return nil, ErrNoUpcomingArrivals
	}

	session := NewSession(key, route, m.Source, m.Notifier, sessionConfig(m.Config))
	if m.Snapshots != nil {
		session.Snapshots = m.Snapshots
	}

	if err := m.Registry.Start(key, session.runIn(m.Registry)); err != nil {
		return nil, err
	}

	log.Info().Str("subscriber", subscriberID).Str("location", key.Location).Int("upcoming", len(upcoming)).Msg("Tracking requested")

	return upcoming, nil
}

func (m *Manager) RequestStop(subscriberID string, location string) error {
	if strings.TrimSpace(subscriberID) == "" || strings.TrimSpace(location) == "" {
		return ErrInvalidArgs
	}

	if !m.Registry.Cancel(newSessionKey(subscriberID, location)) {
		return ErrSessionNotFound
	}

	return nil
}

// RequestStopAll stops every tracker of the subscriber, returning the stopped locations.
func (m *Manager) RequestStopAll(subscriberID string) ([]string, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, ErrInvalidArgs
	}

	stopped := m.Registry.CancelAll(subscriberID)
	if len(stopped) == 0 {
		return nil, ErrSessionNotFound
	}

	return stopped, nil
}

func (m *Manager) RequestStatus(ctx context.Context, subscriberID string) []SessionStatus {
	locations := m.Registry.ListActive(subscriberID)

	statuses := make([]SessionStatus, 0, len(locations))
	for _, location := range locations {
		status := SessionStatus{Location: location}

		if m.Snapshots != nil {
			snapshot, err := m.Snapshots.Get(ctx, ctdf.SessionKey{SubscriberID: subscriberID, Location: location})
			if err != nil {
				log.Debug().Err(err).Str("location", location).Msg("Failed to read session snapshot")
			}
			status.Snapshot = snapshot
		}

		statuses = append(statuses, status)
	}

	return statuses
}

// Shutdown stops all sessions and waits for them to exit.
func (m *Manager) Shutdown() {
	m.Registry.Shutdown()
}
