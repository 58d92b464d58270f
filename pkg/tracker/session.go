package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/arrivals"
	"github.com/travigo/busalert/pkg/ctdf"
	"github.com/travigo/busalert/pkg/notify"
)

type ArrivalSource interface {
	FetchArrivals(ctx context.Context, stopID string, routeID string) ([]ctdf.ArrivalPrediction, error)
}

type SnapshotStore interface {
	Save(ctx context.Context, snapshot ctdf.SessionSnapshot) error
	Delete(ctx context.Context, key ctdf.SessionKey) error
}

type SessionConfig struct {
	PollInterval    time.Duration
	Duration        time.Duration
	NotifyWindowMin time.Duration
	NotifyWindowMax time.Duration

	MaxConsecutiveFailures int
}

// Session polls the feed for one subscriber and location until it expires, is cancelled or
// hits too many consecutive fetch failures. Everything but the context is owned by the
// goroutine calling Run.
type Session struct {
	ID    string
	Key   ctdf.SessionKey
	Route ctdf.RouteConfig

	Source    ArrivalSource
	Notifier  notify.Notifier
	Snapshots SnapshotStore

	Config SessionConfig

	Now func() time.Time

	// Superseded reports whether another session has taken over Key, after which this
	// session leaves the shared snapshot alone. Nil means never.
	Superseded func() bool

	window    *arrivals.NotificationWindow
	startedAt time.Time
	expiresAt time.Time

	lastPoll            time.Time
	nextArrival         *time.Time
	consecutiveFailures int
	notificationsSent   int
}

func NewSession(key ctdf.SessionKey, route ctdf.RouteConfig, source ArrivalSource, notifier notify.Notifier, config SessionConfig) *Session {
	session := &Session{
		Key:      key,
		Route:    route,
		Source:   source,
		Notifier: notifier,
		Config:   config,
		Now:      time.Now,
		window:   arrivals.NewNotificationWindow(config.NotifyWindowMin, config.NotifyWindowMax),
	}
	session.begin(session.Now())

	return session
}

func (s *Session) begin(now time.Time) {
	s.startedAt = now
	s.expiresAt = now.Add(s.Config.Duration)
}

// Run blocks until the session stops and returns why it stopped.
func (s *Session) Run(ctx context.Context) ctdf.StopReason {
	log.Info().
		Str("session", s.ID).
		Str("subscriber", s.Key.SubscriberID).
		Str("location", s.Key.Location).
		Str("stop", s.Route.StopID).
		Str("route", s.Route.RouteID).
		Time("expires", s.expiresAt).
		Msg("Session started")

	reason := s.loop(ctx)

	log.Info().
		Str("session", s.ID).
		Str("subscriber", s.Key.SubscriberID).
		Str("location", s.Key.Location).
		Str("reason", string(reason)).
		Int("notifications", s.notificationsSent).
		Msg("Session stopped")

	if reason != ctdf.StopReasonCancelled {
		s.notifyEnded(ctx, reason)
	}

	if s.ownsSnapshot() {
		if err := s.Snapshots.Delete(context.Background(), s.Key); err != nil {
			log.Warn().Err(err).Str("key", s.Key.String()).Msg("Failed to remove session snapshot")
		}
	}

	return reason
}

// runIn adapts Run for Registry.Start, tying the session id and snapshot ownership to the
// registration.
func (s *Session) runIn(registry *Registry) func(ctx context.Context, sessionID string) {
	return func(ctx context.Context, sessionID string) {
		s.ID = sessionID
		s.Superseded = func() bool {
			return !registry.IsCurrent(s.Key, sessionID)
		}

		s.Run(ctx)
	}
}

func (s *Session) loop(ctx context.Context) ctdf.StopReason {
	for {
		if ctx.Err() != nil {
			return ctdf.StopReasonCancelled
		}

		pollStart := s.now()
		if !pollStart.Before(s.expiresAt) {
			return ctdf.StopReasonExpired
		}

		if err := s.poll(ctx, pollStart); err != nil {
			if ctx.Err() != nil {
				return ctdf.StopReasonCancelled
			}

			if s.Config.MaxConsecutiveFailures > 0 && s.consecutiveFailures >= s.Config.MaxConsecutiveFailures {
				return ctdf.StopReasonError
			}
		}

		if !s.wait(ctx, pollStart) {
			return ctdf.StopReasonCancelled
		}
	}
}

// poll runs a single fetch and notify pass at now. A fetch error is returned after being
// counted, notifier errors are only logged.
func (s *Session) poll(ctx context.Context, now time.Time) error {
	predictions, err := s.Source.FetchArrivals(ctx, s.Route.StopID, s.Route.RouteID)
	s.lastPoll = now

	if err != nil {
		// aborted by our own cancellation, not a feed failure
		if ctx.Err() != nil {
			return err
		}

		s.consecutiveFailures++

		log.Warn().
			Err(err).
			Str("key", s.Key.String()).
			Int("failures", s.consecutiveFailures).
			Msg("Failed to fetch arrivals")

		s.saveSnapshot(ctx)

		return err
	}
	s.consecutiveFailures = 0

	ranked := arrivals.Rank(predictions)

	s.nextArrival = nil
	if len(ranked) > 0 {
		next := ranked[0].ArrivalTime
		s.nextArrival = &next
	}

	for _, prediction := range ranked {
		if !s.window.ShouldNotify(prediction, now) {
			continue
		}

		minutes := prediction.MinutesUntil(now)

		notification := ctdf.Notification{
			TargetUser:   s.Key.SubscriberID,
			Type:         ctdf.NotificationTypeArrival,
			Title:        fmt.Sprintf("%s bus", s.Key.Location),
			Message:      fmt.Sprintf("Bus %s arriving in around %d minutes", prediction.RouteID, minutes),
			RouteID:      prediction.RouteID,
			StopID:       prediction.StopID,
			ArrivalTime:  prediction.ArrivalTime,
			MinutesUntil: minutes,
		}

		if err := s.Notifier.Notify(ctx, notification); err != nil {
			log.Warn().Err(err).Str("key", s.Key.String()).Msg("Failed to send arrival notification")
			continue
		}

		s.notificationsSent++
	}

	s.saveSnapshot(ctx)

	return nil
}

// wait sleeps until the next poll is due, never past the session deadline. It returns false
// if ctx was cancelled while waiting.
func (s *Session) wait(ctx context.Context, pollStart time.Time) bool {
	now := s.now()

	waitTime := s.Config.PollInterval - now.Sub(pollStart)
	if remaining := s.expiresAt.Sub(now); remaining < waitTime {
		waitTime = remaining
	}

	if waitTime <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Session) notifyEnded(ctx context.Context, reason ctdf.StopReason) {
	message := fmt.Sprintf("Your %s bus tracker has ended.", s.Key.Location)
	if reason == ctdf.StopReasonError {
		message = fmt.Sprintf("Your %s bus tracker stopped after %d failed attempts to read the live feed.", s.Key.Location, s.consecutiveFailures)
	}

	err := s.Notifier.Notify(ctx, ctdf.Notification{
		TargetUser: s.Key.SubscriberID,
		Type:       ctdf.NotificationTypeTrackerEnded,
		Title:      "Tracker ended",
		Message:    message,
		RouteID:    s.Route.RouteID,
		StopID:     s.Route.StopID,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("key", s.Key.String()).Msg("Failed to send tracker ended notification")
	}
}

func (s *Session) Snapshot() ctdf.SessionSnapshot {
	return ctdf.SessionSnapshot{
		SubscriberID:        s.Key.SubscriberID,
		Location:            s.Key.Location,
		StartedAt:           s.startedAt,
		ExpiresAt:           s.expiresAt,
		LastPoll:            s.lastPoll,
		NextArrival:         s.nextArrival,
		ConsecutiveFailures: s.consecutiveFailures,
		NotificationsSent:   s.notificationsSent,
	}
}

func (s *Session) ownsSnapshot() bool {
	return s.Snapshots != nil && (s.Superseded == nil || !s.Superseded())
}

func (s *Session) saveSnapshot(ctx context.Context) {
	if !s.ownsSnapshot() {
		return
	}

	if err := s.Snapshots.Save(ctx, s.Snapshot()); err != nil {
		log.Debug().Err(err).Str("key", s.Key.String()).Msg("Failed to save session snapshot")
	}
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}
