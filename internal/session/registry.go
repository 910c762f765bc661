package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/XxishikuxX/ROMulus-sub001/internal/encoder"
	"github.com/XxishikuxX/ROMulus-sub001/internal/events"
	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
	"github.com/XxishikuxX/ROMulus-sub001/internal/metrics"
)

// ErrShuttingDown is returned by Subscribe once Shutdown has begun.
var ErrShuttingDown = errors.New("session registry is shutting down")

// sessionEntry is the per-id slot in the registry. The first subscriber for
// an id inserts the entry and creates the session outside the registry lock;
// concurrent subscribers for the same id wait on ready and share the result.
type sessionEntry struct {
	ready chan struct{}
	s     *Session
	err   error
}

// Registry owns all live sessions and serializes find-or-create per session
// id, so a burst of first subscribers launches exactly one encoder.
type Registry struct {
	logger *slog.Logger
	bus    *events.Bus
	sup    *encoder.Supervisor
	grants GrantSource

	profile  hardware.EncoderProfile
	fps      uint
	audioDev string

	mu           sync.Mutex
	sessions     map[string]*sessionEntry
	byConn       map[Conn]*Session
	shuttingDown bool
}

// NewRegistry creates an empty registry. All sessions created through it
// share the resolved encoder profile and frame rate.
func NewRegistry(logger *slog.Logger, bus *events.Bus, sup *encoder.Supervisor, grants GrantSource, profile hardware.EncoderProfile, fps uint, audioDev string) *Registry {
	return &Registry{
		logger:   logger,
		bus:      bus,
		sup:      sup,
		grants:   grants,
		profile:  profile,
		fps:      fps,
		audioDev: audioDev,
		sessions: make(map[string]*sessionEntry),
		byConn:   make(map[Conn]*Session),
	}
}

// Subscribe attaches conn to the session identified by sessionID, creating
// the session and launching its encoder when it does not exist yet. The
// quality hint only takes effect on the subscriber that triggers creation;
// later subscribers join at whatever tier the session already runs.
func (r *Registry) Subscribe(sessionID, qualityHint string, conn Conn) (*Session, error) {
	for {
		r.mu.Lock()
		if r.shuttingDown {
			r.mu.Unlock()
			return nil, ErrShuttingDown
		}
		entry, ok := r.sessions[sessionID]
		if !ok {
			entry = &sessionEntry{ready: make(chan struct{})}
			r.sessions[sessionID] = entry
			r.mu.Unlock()

			s, err := r.create(sessionID, qualityHint)
			r.mu.Lock()
			entry.s, entry.err = s, err
			if err != nil {
				// Leave no tombstone: the next subscriber retries creation.
				if r.sessions[sessionID] == entry {
					delete(r.sessions, sessionID)
				}
			}
			r.mu.Unlock()
			close(entry.ready)

			if err != nil {
				return nil, err
			}
			go s.run()
		} else {
			r.mu.Unlock()
			<-entry.ready
			if entry.err != nil {
				return nil, entry.err
			}
		}

		s := entry.s
		if !s.addSubscriber(conn) {
			// Session terminated between lookup and join. Wait for the
			// registry slot to clear and create a successor.
			r.awaitRemoval(sessionID, entry)
			continue
		}

		r.mu.Lock()
		r.byConn[conn] = s
		r.mu.Unlock()
		return s, nil
	}
}

// Unsubscribe detaches conn from its session, destroying the session when
// conn was the last subscriber. Unknown connections are ignored.
func (r *Registry) Unsubscribe(conn Conn) {
	r.mu.Lock()
	s, ok := r.byConn[conn]
	if ok {
		delete(r.byConn, conn)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	s.removeSubscriber(conn, false)
}

// Lookup returns the live session for id, if any.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok || entry.s == nil {
		return nil, false
	}
	return entry.s, true
}

// ActiveSessions returns a snapshot of all live sessions.
func (r *Registry) ActiveSessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		if entry.s != nil {
			out = append(out, entry.s)
		}
	}
	return out
}

// Shutdown terminates every live session and rejects further subscribes.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.shuttingDown = true
	live := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		if entry.s != nil {
			live = append(live, entry.s)
		}
	}
	r.mu.Unlock()

	r.logger.Info("Shutting down session registry", "sessions", len(live))
	var wg sync.WaitGroup
	for _, s := range live {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.terminate(ReasonShutdown)
		}(s)
	}
	wg.Wait()
}

// create resolves the display grant, launches the encoder, and builds the
// session. Called by exactly one goroutine per registry slot.
func (r *Registry) create(sessionID, qualityHint string) (*Session, error) {
	grant, err := r.grants.Grant(sessionID)
	if err != nil {
		r.logger.Warn("No display grant for session", "session_id", sessionID, "error", err)
		return nil, err
	}

	tier, spec := encoder.LookupQuality(qualityHint)
	enc, err := r.sup.Start(encoder.StreamParams{
		SessionID: sessionID,
		Display:   grant.DisplayHandle,
		AudioDev:  r.audioDev,
		Profile:   r.profile,
		Quality:   spec,
		FPS:       r.fps,
	})
	if err != nil {
		r.logger.Error("Session creation failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	s := &Session{
		ID:          sessionID,
		OwnerUserID: grant.OwnerUserID,
		Display:     grant.DisplayHandle,
		Profile:     r.profile,
		Tier:        tier,
		enc:         enc,
		registry:    r,
		logger:      r.logger,
		subs:        make(map[Conn]time.Time),
	}

	metrics.SessionStarted()
	r.bus.Publish(events.SessionCreatedEvent{
		SessionID:   sessionID,
		OwnerUserID: grant.OwnerUserID,
		Display:     grant.DisplayHandle,
		Quality:     string(tier),
		Codec:       r.profile.Codec,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
	r.logger.Info("Session created",
		"session_id", sessionID,
		"owner", grant.OwnerUserID,
		"display", grant.DisplayHandle,
		"quality", string(tier))
	return s, nil
}

// remove clears the registry slot for s. Identity is compared so a successor
// session that reused the id is never evicted by its predecessor's teardown.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	if entry, ok := r.sessions[s.ID]; ok && entry.s == s {
		delete(r.sessions, s.ID)
	}
	r.mu.Unlock()
}

// detach drops the conn-to-session mapping without touching the subscriber
// set. Used on the teardown and slow-consumer paths where the session side
// is handled separately.
func (r *Registry) detach(c Conn) {
	r.mu.Lock()
	delete(r.byConn, c)
	r.mu.Unlock()
}

// awaitRemoval spins briefly until the terminated session's slot is gone, so
// the retry loop in Subscribe creates a fresh session instead of re-reading
// the dying one.
func (r *Registry) awaitRemoval(id string, stale *sessionEntry) {
	for {
		r.mu.Lock()
		entry, ok := r.sessions[id]
		r.mu.Unlock()
		if !ok || entry != stale {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
