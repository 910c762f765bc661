// Package transport accepts viewer websocket connections and bridges them to
// the session hub: media chunks flow out, input events flow in.
package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/XxishikuxX/ROMulus-sub001/internal/input"
	"github.com/XxishikuxX/ROMulus-sub001/internal/session"
)

// Listener terminates the stream endpoint. Each accepted connection is
// subscribed to the session named in its query string and then read for
// input events until it closes.
type Listener struct {
	logger   *slog.Logger
	registry *session.Registry
	relay    *input.Relay
	upgrader websocket.Upgrader
}

// NewListener creates a listener backed by the given registry and relay.
func NewListener(logger *slog.Logger, registry *session.Registry, relay *input.Relay) *Listener {
	return &Listener{
		logger:   logger,
		registry: registry,
		relay:    relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The core sits behind the session-management layer, which
			// already authorized the viewer. Origin policy lives there.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// SetupRoutes mounts the stream endpoint.
func (l *Listener) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stream", l.HandleStream)
}

// HandleStream upgrades the connection, subscribes it to the requested
// session, and relays its input events until it disconnects.
func (l *Listener) HandleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	quality := r.URL.Query().Get("quality")

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if sessionID == "" {
		l.logger.Warn("Rejecting stream connection without session id", "remote", r.RemoteAddr)
		frame := websocket.FormatCloseMessage(CodeMissingSessionID, "missing sessionId")
		ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
		ws.Close()
		return
	}

	conn := newConn(ws)
	s, err := l.registry.Subscribe(sessionID, quality, conn)
	if err != nil {
		l.logger.Error("Subscribe failed", "session_id", sessionID, "remote", r.RemoteAddr, "error", err)
		if errors.Is(err, session.ErrShuttingDown) {
			conn.Close(session.CloseShutdown)
		} else {
			conn.closeWith(websocket.CloseInternalServerErr, "session could not be started")
		}
		return
	}

	l.logger.Info("Viewer connected", "session_id", sessionID, "remote", r.RemoteAddr, "quality", quality)
	l.readLoop(s, conn, ws)
}

// readLoop drains inbound messages, treating text frames as input events.
// It returns when the peer disconnects or the connection is closed by the
// hub, unsubscribing either way.
func (l *Listener) readLoop(s *session.Session, conn *wsConn, ws *websocket.Conn) {
	defer func() {
		l.registry.Unsubscribe(conn)
		conn.closeQuiet()
		l.logger.Info("Viewer disconnected", "session_id", s.ID, "remote", conn.RemoteAddr())
	}()

	for {
		msgType, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		l.relay.Relay(s.ID, s.Display, payload)
	}
}
