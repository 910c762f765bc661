package session

import "errors"

// ErrBacklogFull is returned by Conn.Send when the connection's bounded
// backlog overflows. The hub treats it as grounds for disconnection.
var ErrBacklogFull = errors.New("subscriber backlog full")

// CloseReason tells a subscriber why it is being disconnected.
type CloseReason int

const (
	// CloseSessionEnded: the session was torn down (encoder exit or explicit stop).
	CloseSessionEnded CloseReason = iota
	// CloseSlowConsumer: this connection's backlog overflowed.
	CloseSlowConsumer
	// CloseShutdown: the server is shutting down.
	CloseShutdown
)

// Conn is one transport-level peer receiving a session's media stream.
// Send must be non-blocking: implementations queue the chunk into a bounded
// backlog and return ErrBacklogFull instead of stalling the fan-out loop.
type Conn interface {
	Send(chunk []byte) error
	Close(reason CloseReason)
	RemoteAddr() string
}

// Grant is the pre-authorized identity triple handed to the core by the
// session-management layer. The core never performs authorization itself.
type Grant struct {
	OwnerUserID   string
	DisplayHandle string
}

// GrantSource resolves a session id to its pre-authorized grant.
type GrantSource interface {
	Grant(sessionID string) (Grant, error)
}

// StaticGrants is the standalone fallback grant source: every session id is
// granted the same owner and capture display. Deployments with a real
// session-management layer inject their own source instead.
type StaticGrants struct {
	Owner   string
	Display string
}

// Grant implements GrantSource.
func (g StaticGrants) Grant(string) (Grant, error) {
	return Grant{OwnerUserID: g.Owner, DisplayHandle: g.Display}, nil
}
