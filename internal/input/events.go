// Package input decodes subscriber input events and injects them into the
// session's capture display.
package input

import (
	"encoding/json"
	"fmt"
)

// Event kind tags carried in the "type" field of the wire payload.
const (
	KindKey         = "key"
	KindMouseMove   = "mouse_move"
	KindMouseButton = "mouse_button"
	KindGamepad     = "gamepad"
)

// KeyEvent is a keyboard key transition.
type KeyEvent struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

// MouseMoveEvent is an absolute pointer position.
type MouseMoveEvent struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MouseButtonEvent is a pointer button transition. Buttons follow X11
// numbering: 1 left, 2 middle, 3 right.
type MouseButtonEvent struct {
	Button  int  `json:"button"`
	Pressed bool `json:"pressed"`
}

// GamepadEvent is a controller button transition.
type GamepadEvent struct {
	Button  string `json:"button"`
	Pressed bool   `json:"pressed"`
}

// envelope carries the variant tag plus the superset of all variant fields.
type envelope struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	X       *int   `json:"x"`
	Y       *int   `json:"y"`
	Button  any    `json:"button"`
	Pressed bool   `json:"pressed"`
}

// Decode parses a wire payload into one of the event variants. The returned
// kind is the envelope tag; unknown tags and malformed payloads fail.
func Decode(payload []byte) (kind string, event any, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("malformed input event: %w", err)
	}

	switch env.Type {
	case KindKey:
		if env.Key == "" {
			return "", nil, fmt.Errorf("key event missing key")
		}
		return KindKey, KeyEvent{Key: env.Key, Pressed: env.Pressed}, nil

	case KindMouseMove:
		if env.X == nil || env.Y == nil {
			return "", nil, fmt.Errorf("mouse move event missing coordinates")
		}
		return KindMouseMove, MouseMoveEvent{X: *env.X, Y: *env.Y}, nil

	case KindMouseButton:
		button, ok := env.Button.(float64)
		if !ok || button < 1 {
			return "", nil, fmt.Errorf("mouse button event has invalid button")
		}
		return KindMouseButton, MouseButtonEvent{Button: int(button), Pressed: env.Pressed}, nil

	case KindGamepad:
		button, ok := env.Button.(string)
		if !ok || button == "" {
			return "", nil, fmt.Errorf("gamepad event has invalid button")
		}
		return KindGamepad, GamepadEvent{Button: button, Pressed: env.Pressed}, nil

	default:
		return "", nil, fmt.Errorf("unknown input event type %q", env.Type)
	}
}
