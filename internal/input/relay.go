package input

import (
	"log/slog"

	"github.com/XxishikuxX/ROMulus-sub001/internal/metrics"
)

// Relay decodes subscriber input payloads and forwards them to the session's
// capture display. All paths are fire-and-forget: decode and injection
// failures are logged and never reach the sender or the session.
type Relay struct {
	logger *slog.Logger
	inj    Injector
}

// NewRelay creates a relay delivering through inj.
func NewRelay(logger *slog.Logger, inj Injector) *Relay {
	return &Relay{logger: logger, inj: inj}
}

// Relay handles one raw input payload from a subscriber of sessionID.
func (r *Relay) Relay(sessionID, display string, payload []byte) {
	kind, event, err := Decode(payload)
	if err != nil {
		r.logger.Warn("Ignoring malformed input event", "session_id", sessionID, "error", err)
		return
	}

	switch ev := event.(type) {
	case KeyEvent:
		err = r.inj.Key(display, ev)
	case MouseMoveEvent:
		err = r.inj.MouseMove(display, ev)
	case MouseButtonEvent:
		err = r.inj.MouseButton(display, ev)
	case GamepadEvent:
		err = r.inj.Gamepad(display, ev)
	}
	if err != nil {
		r.logger.Warn("Input injection failed", "session_id", sessionID, "kind", kind, "error", err)
		return
	}

	metrics.InputEventRelayed(sessionID, kind)
}
