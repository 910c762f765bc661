package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/XxishikuxX/ROMulus-sub001/internal/session"
)

// Close codes sent to viewers, distinguishing why they were disconnected.
const (
	CodeSessionEnded     = 4000
	CodeSlowConsumer     = 4001
	CodeServerShutdown   = 4002
	CodeMissingSessionID = 4003
)

const (
	sendBacklog = 64
	writeWait   = 10 * time.Second
)

// wsConn adapts a websocket connection to the hub's subscriber interface.
// Send queues into a bounded backlog drained by a single writer goroutine,
// so a stalled peer can never block the session's fan-out loop.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	closeCode int
	closeText string
}

func newConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{
		ws:   ws,
		send: make(chan []byte, sendBacklog),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send implements session.Conn.
func (c *wsConn) Send(chunk []byte) error {
	select {
	case <-c.done:
		return nil
	case c.send <- chunk:
		return nil
	default:
		return session.ErrBacklogFull
	}
}

// Close implements session.Conn. The mapped close code is delivered to the
// peer before the socket is torn down.
func (c *wsConn) Close(reason session.CloseReason) {
	code, text := CodeSessionEnded, "session ended"
	switch reason {
	case session.CloseSlowConsumer:
		code, text = CodeSlowConsumer, "connection too slow"
	case session.CloseShutdown:
		code, text = CodeServerShutdown, "server shutting down"
	}
	c.closeWith(code, text)
}

// RemoteAddr implements session.Conn.
func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *wsConn) closeWith(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode, c.closeText = code, text
		close(c.done)
	})
}

// closeQuiet tears the connection down without a close frame. Used when the
// peer already went away.
func (c *wsConn) closeQuiet() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *wsConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-c.done:
			if c.closeCode != 0 {
				frame := websocket.FormatCloseMessage(c.closeCode, c.closeText)
				c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
			}
			return
		}
	}
}
