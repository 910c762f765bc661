package input

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingInjector captures the xdotool argument lists instead of executing.
func recordingInjector() (*XDoTool, *[][]string) {
	var calls [][]string
	x := NewXDoTool()
	x.runOverride = func(display string, args ...string) error {
		calls = append(calls, append([]string{display}, args...))
		return nil
	}
	return x, &calls
}

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    string
		event   any
	}{
		{"key press", `{"type":"key","key":"Enter","pressed":true}`, KindKey, KeyEvent{Key: "Enter", Pressed: true}},
		{"key release", `{"type":"key","key":"a","pressed":false}`, KindKey, KeyEvent{Key: "a"}},
		{"mouse move", `{"type":"mouse_move","x":640,"y":360}`, KindMouseMove, MouseMoveEvent{X: 640, Y: 360}},
		{"mouse move origin", `{"type":"mouse_move","x":0,"y":0}`, KindMouseMove, MouseMoveEvent{}},
		{"mouse button", `{"type":"mouse_button","button":1,"pressed":true}`, KindMouseButton, MouseButtonEvent{Button: 1, Pressed: true}},
		{"gamepad", `{"type":"gamepad","button":"start","pressed":true}`, KindGamepad, GamepadEvent{Button: "start", Pressed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, event, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if kind != tt.kind {
				t.Errorf("kind = %q, want %q", kind, tt.kind)
			}
			if !reflect.DeepEqual(event, tt.event) {
				t.Errorf("event = %#v, want %#v", event, tt.event)
			}
		})
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	payloads := []string{
		`not json`,
		`{}`,
		`{"type":"teleport"}`,
		`{"type":"key","pressed":true}`,
		`{"type":"mouse_move","x":10}`,
		`{"type":"mouse_button","button":"left"}`,
		`{"type":"gamepad","button":7}`,
	}
	for _, p := range payloads {
		if _, _, err := Decode([]byte(p)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", p)
		}
	}
}

func TestRelayInjectsKeyEvent(t *testing.T) {
	inj, calls := recordingInjector()
	r := NewRelay(testLogger(), inj)

	r.Relay("game-1", ":99", []byte(`{"type":"key","key":"Enter","pressed":true}`))

	want := [][]string{{":99", "keydown", "Enter"}}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("calls = %v, want %v", *calls, want)
	}
}

func TestRelayIgnoresMalformedPayload(t *testing.T) {
	inj, calls := recordingInjector()
	var logBuf bytes.Buffer
	r := NewRelay(slog.New(slog.NewTextHandler(&logBuf, nil)), inj)

	r.Relay("game-1", ":99", []byte(`{broken`))

	if len(*calls) != 0 {
		t.Errorf("injection calls = %v, want none", *calls)
	}
	// The discard must show up at the default info level, not only under debug.
	if got := logBuf.String(); !strings.Contains(got, "Ignoring malformed input event") {
		t.Errorf("log output %q, want a malformed input record", got)
	}
}

func TestRelaySwallowsInjectionFailure(t *testing.T) {
	x := NewXDoTool()
	x.runOverride = func(string, ...string) error { return errors.New("display gone") }
	r := NewRelay(testLogger(), x)

	r.Relay("game-1", ":99", []byte(`{"type":"mouse_move","x":1,"y":2}`))
}

func TestXDoToolArgumentMapping(t *testing.T) {
	inj, calls := recordingInjector()

	if err := inj.Key(":5", KeyEvent{Key: "space", Pressed: false}); err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := inj.MouseMove(":5", MouseMoveEvent{X: 100, Y: 200}); err != nil {
		t.Fatalf("MouseMove: %v", err)
	}
	if err := inj.MouseButton(":5", MouseButtonEvent{Button: 3, Pressed: true}); err != nil {
		t.Fatalf("MouseButton: %v", err)
	}
	if err := inj.Gamepad(":5", GamepadEvent{Button: "start", Pressed: true}); err != nil {
		t.Fatalf("Gamepad: %v", err)
	}

	want := [][]string{
		{":5", "keyup", "space"},
		{":5", "mousemove", "100", "200"},
		{":5", "mousedown", "3"},
		{":5", "keydown", "Return"},
	}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("calls = %v, want %v", *calls, want)
	}
}

func TestXDoToolRejectsUnmappedGamepadButton(t *testing.T) {
	inj, _ := recordingInjector()

	err := inj.Gamepad(":5", GamepadEvent{Button: "turbo", Pressed: true})
	if err == nil || !strings.Contains(err.Error(), "unmapped") {
		t.Errorf("err = %v, want unmapped button error", err)
	}
}
