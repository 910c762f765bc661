package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/XxishikuxX/ROMulus-sub001/internal/encoder"
	"github.com/XxishikuxX/ROMulus-sub001/internal/events"
	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
	"github.com/XxishikuxX/ROMulus-sub001/internal/metrics"
)

// State is the session lifecycle state.
type State int32

// Session lifecycle states.
const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateTerminated
)

// EndReason identifies which trigger tore a session down.
type EndReason string

// Teardown triggers. All of them funnel through the same single-execution path.
const (
	ReasonLastSubscriber EndReason = "last_subscriber"
	ReasonEncoderExit    EndReason = "encoder_exit"
	ReasonShutdown       EndReason = "shutdown"
)

// Session is one live capture+encode+fan-out unit. It owns exactly one
// encoder process and the set of subscribed connections.
type Session struct {
	ID          string
	OwnerUserID string
	Display     string
	Profile     hardware.EncoderProfile
	Tier        encoder.QualityTier

	enc      *encoder.Encoder
	registry *Registry
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	subs  map[Conn]time.Time // joinedAt

	terminateOnce sync.Once
}

// StateNow returns the current lifecycle state.
func (s *Session) StateNow() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SubscriberCount returns the current subscriber count.
func (s *Session) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// addSubscriber registers a connection. Returns false when the session is
// already draining or terminated, in which case the caller must retry with a
// fresh session.
func (s *Session) addSubscriber(c Conn) bool {
	s.mu.Lock()
	if s.state == StateDraining || s.state == StateTerminated {
		s.mu.Unlock()
		return false
	}
	s.subs[c] = time.Now()
	s.state = StateRunning
	n := len(s.subs)
	s.mu.Unlock()

	metrics.SetSubscribers(s.ID, n)
	s.registry.bus.Publish(events.SubscriberJoinedEvent{
		SessionID:  s.ID,
		RemoteAddr: c.RemoteAddr(),
		Timestamp:  time.Now().Format(time.RFC3339),
	})
	s.logger.Info("Subscriber joined", "session_id", s.ID, "remote", c.RemoteAddr(), "subscribers", n)
	return true
}

// removeSubscriber drops a connection from the set. When the set empties the
// session is destroyed synchronously.
func (s *Session) removeSubscriber(c Conn, dropped bool) {
	s.mu.Lock()
	if _, ok := s.subs[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.subs, c)
	n := len(s.subs)
	s.mu.Unlock()

	metrics.SetSubscribers(s.ID, n)
	now := time.Now().Format(time.RFC3339)
	if dropped {
		metrics.SubscriberDropped(s.ID)
		s.registry.bus.Publish(events.SubscriberDroppedEvent{SessionID: s.ID, RemoteAddr: c.RemoteAddr(), Timestamp: now})
		s.logger.Warn("Subscriber dropped: backlog overflow", "session_id", s.ID, "remote", c.RemoteAddr())
	} else {
		s.registry.bus.Publish(events.SubscriberLeftEvent{SessionID: s.ID, RemoteAddr: c.RemoteAddr(), Timestamp: now})
		s.logger.Info("Subscriber left", "session_id", s.ID, "remote", c.RemoteAddr(), "subscribers", n)
	}

	if n == 0 {
		s.terminate(ReasonLastSubscriber)
	}
}

// run is the session worker: it drains the encoder's chunk sequence and
// performs fan-out until the encoder ends or a fatal diagnostic arrives.
func (s *Session) run() {
	for {
		select {
		case chunk, ok := <-s.enc.Chunks():
			if !ok {
				s.logger.Info("Encoder stream ended", "session_id", s.ID)
				s.terminate(ReasonEncoderExit)
				return
			}
			s.fanOut(chunk)

		case err := <-s.enc.Fatal():
			s.logger.Error("Encoder fatal diagnostic", "session_id", s.ID, "error", err)
			metrics.EncoderFatal(s.ID)
			s.registry.bus.Publish(events.EncoderFatalEvent{
				SessionID: s.ID,
				Message:   err.Error(),
				Tail:      strings.Join(s.enc.Tail(), "\n"),
				Timestamp: time.Now().Format(time.RFC3339),
			})
			s.terminate(ReasonEncoderExit)
			return
		}
	}
}

// fanOut delivers one chunk to a stable snapshot of the subscriber set.
// A connection whose backlog overflows is disconnected instead of stalling
// delivery to the others.
func (s *Session) fanOut(chunk []byte) {
	s.mu.Lock()
	conns := make([]Conn, 0, len(s.subs))
	for c := range s.subs {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(chunk); err != nil {
			s.registry.detach(c)
			c.Close(CloseSlowConsumer)
			s.removeSubscriber(c, true)
			continue
		}
		metrics.ChunkDelivered(s.ID, len(chunk))
	}
}

// terminate tears the session down exactly once: registry removal, encoder
// stop with escalation, and closure of every remaining subscriber.
func (s *Session) terminate(reason EndReason) {
	s.terminateOnce.Do(func() {
		s.mu.Lock()
		s.state = StateDraining
		conns := make([]Conn, 0, len(s.subs))
		for c := range s.subs {
			conns = append(conns, c)
		}
		s.subs = make(map[Conn]time.Time)
		s.mu.Unlock()

		s.logger.Info("Terminating session", "session_id", s.ID, "reason", string(reason))

		// Unreachable from the registry before any slow stop work happens.
		s.registry.remove(s)

		// Subscribers are closed before the encoder stop: viewers must not
		// wait out the SIGTERM escalation window for their close reason.
		closeReason := CloseSessionEnded
		if reason == ReasonShutdown {
			closeReason = CloseShutdown
		}
		for _, c := range conns {
			s.registry.detach(c)
			c.Close(closeReason)
		}

		s.enc.Stop()

		s.mu.Lock()
		s.state = StateTerminated
		s.mu.Unlock()

		metrics.SessionEnded(s.ID)
		s.registry.bus.Publish(events.SessionEndedEvent{
			SessionID: s.ID,
			Reason:    string(reason),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		s.logger.Info("Session terminated", "session_id", s.ID, "reason", string(reason))
	})
}
