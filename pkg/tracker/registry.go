package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/busalert/pkg/ctdf"
	"golang.org/x/exp/slices"
)

type registration struct {
	id     string
	status ctdf.SessionStatus
	cancel context.CancelFunc
}

// Registry is the process wide table of sessions. A key can only hold one Running session;
// a session that has been asked to stop may be replaced before its goroutine has exited.
type Registry struct {
	mutex    sync.Mutex
	sessions map[ctdf.SessionKey]*registration
	closed   bool

	ctx       context.Context
	cancelAll context.CancelFunc
	wg        conc.WaitGroup
}

func NewRegistry() *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		sessions:  map[ctdf.SessionKey]*registration{},
		ctx:       ctx,
		cancelAll: cancel,
	}
}

// Start runs run in its own goroutine under key with a fresh session id. The context passed
// to run is cancelled by Cancel, CancelAll or Shutdown and the key is released once run
// returns.
func (r *Registry) Start(key ctdf.SessionKey, run func(ctx context.Context, sessionID string)) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	if existing, exists := r.sessions[key]; exists && existing.status == ctdf.SessionStatusRunning {
		return ErrRejectedDuplicate
	}

	ctx, cancel := context.WithCancel(r.ctx)
	entry := &registration{
		id:     uuid.NewString(),
		status: ctdf.SessionStatusRunning,
		cancel: cancel,
	}
	r.sessions[key] = entry

	log.Debug().Str("session", entry.id).Str("key", key.String()).Msg("Registered session")

	r.wg.Go(func() {
		defer r.onSessionEnded(key, entry)
		defer cancel()

		run(ctx, entry.id)
	})

	return nil
}

func (r *Registry) onSessionEnded(key ctdf.SessionKey, entry *registration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.sessions[key] == entry {
		delete(r.sessions, key)
	}

	log.Debug().Str("session", entry.id).Str("key", key.String()).Msg("Removed session")
}

// IsCurrent reports whether sessionID still owns key. It turns false once the session has
// been replaced or removed.
func (r *Registry) IsCurrent(key ctdf.SessionKey, sessionID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.sessions[key]

	return exists && entry.id == sessionID
}

// Cancel reports whether a running session existed and was signalled.
func (r *Registry) Cancel(key ctdf.SessionKey) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.sessions[key]
	if !exists || entry.status != ctdf.SessionStatusRunning {
		return false
	}

	entry.status = ctdf.SessionStatusStopRequested
	entry.cancel()

	return true
}

// CancelAll signals every running session of subscriberID and returns their locations.
func (r *Registry) CancelAll(subscriberID string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var cancelled []string

	for key, entry := range r.sessions {
		if key.SubscriberID != subscriberID || entry.status != ctdf.SessionStatusRunning {
			continue
		}

		entry.status = ctdf.SessionStatusStopRequested
		entry.cancel()

		cancelled = append(cancelled, key.Location)
	}

	slices.Sort(cancelled)

	return cancelled
}

func (r *Registry) ListActive(subscriberID string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	locations := []string{}

	for key, entry := range r.sessions {
		if key.SubscriberID == subscriberID && entry.status == ctdf.SessionStatusRunning {
			locations = append(locations, key.Location)
		}
	}

	slices.Sort(locations)

	return locations
}

func (r *Registry) IsRunning(key ctdf.SessionKey) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.sessions[key]

	return exists && entry.status == ctdf.SessionStatusRunning
}

// Len counts registered sessions, including ones still winding down.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.sessions)
}

// Shutdown stops accepting sessions, cancels the running ones and waits for them to exit.
func (r *Registry) Shutdown() {
	r.mutex.Lock()
	r.closed = true
	for _, entry := range r.sessions {
		entry.status = ctdf.SessionStatusStopRequested
	}
	r.mutex.Unlock()

	r.cancelAll()
	r.wg.Wait()
}
