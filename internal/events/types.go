package events

// Event type constants for kelindar/event.
const (
	TypeSessionCreated uint32 = iota + 1
	TypeSessionEnded
	TypeSubscriberJoined
	TypeSubscriberLeft
	TypeSubscriberDropped
	TypeEncoderFatal
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionCreatedEvent is published when a session is created and its encoder launched.
type SessionCreatedEvent struct {
	SessionID   string `json:"session_id"`
	OwnerUserID string `json:"owner_user_id"`
	Display     string `json:"display"`
	Quality     string `json:"quality"`
	Codec       string `json:"codec"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for SessionCreatedEvent.
func (e SessionCreatedEvent) Type() uint32 { return TypeSessionCreated }

// SessionEndedEvent is published exactly once when a session is torn down.
type SessionEndedEvent struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason" example:"encoder_exit" doc:"Teardown trigger: last_subscriber, encoder_exit, shutdown"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for SessionEndedEvent.
func (e SessionEndedEvent) Type() uint32 { return TypeSessionEnded }

// SubscriberJoinedEvent is published when a connection subscribes to a session.
type SubscriberJoinedEvent struct {
	SessionID  string `json:"session_id"`
	RemoteAddr string `json:"remote_addr"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for SubscriberJoinedEvent.
func (e SubscriberJoinedEvent) Type() uint32 { return TypeSubscriberJoined }

// SubscriberLeftEvent is published when a connection unsubscribes normally.
type SubscriberLeftEvent struct {
	SessionID  string `json:"session_id"`
	RemoteAddr string `json:"remote_addr"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for SubscriberLeftEvent.
func (e SubscriberLeftEvent) Type() uint32 { return TypeSubscriberLeft }

// SubscriberDroppedEvent is published when a subscriber is disconnected
// because its send backlog overflowed.
type SubscriberDroppedEvent struct {
	SessionID  string `json:"session_id"`
	RemoteAddr string `json:"remote_addr"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for SubscriberDroppedEvent.
func (e SubscriberDroppedEvent) Type() uint32 { return TypeSubscriberDropped }

// EncoderFatalEvent is published when a session's encoder process hits a fatal
// diagnostic line or exits while the session is live.
type EncoderFatalEvent struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Tail      string `json:"tail" doc:"Last diagnostic lines from the encoder"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for EncoderFatalEvent.
func (e EncoderFatalEvent) Type() uint32 { return TypeEncoderFatal }
