package input

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Injector delivers decoded input events to a capture display. Implementations
// are substitutable per deployment; the relay does not care how injection
// happens.
type Injector interface {
	Key(display string, ev KeyEvent) error
	MouseMove(display string, ev MouseMoveEvent) error
	MouseButton(display string, ev MouseButtonEvent) error
	Gamepad(display string, ev GamepadEvent) error
}

// gamepadKeymap maps controller buttons onto the keyboard layout emulators
// conventionally bind.
var gamepadKeymap = map[string]string{
	"a":      "x",
	"b":      "z",
	"x":      "s",
	"y":      "a",
	"start":  "Return",
	"select": "shift",
	"up":     "Up",
	"down":   "Down",
	"left":   "Left",
	"right":  "Right",
	"l":      "q",
	"r":      "w",
}

// XDoTool injects events into an X11 display by invoking xdotool as a child
// process. Gamepad buttons are translated through the keyboard keymap.
type XDoTool struct {
	binary string

	// test seam: replaces the xdotool invocation entirely
	runOverride func(display string, args ...string) error
}

// NewXDoTool creates an X11 injector using the xdotool binary on PATH.
func NewXDoTool() *XDoTool {
	return &XDoTool{binary: "xdotool"}
}

func (x *XDoTool) run(display string, args ...string) error {
	if x.runOverride != nil {
		return x.runOverride(display, args...)
	}
	cmd := exec.Command(x.binary, args...)
	cmd.Env = append(os.Environ(), "DISPLAY="+display)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", x.binary, args[0], err, out)
	}
	return nil
}

// Key implements Injector.
func (x *XDoTool) Key(display string, ev KeyEvent) error {
	action := "keyup"
	if ev.Pressed {
		action = "keydown"
	}
	return x.run(display, action, ev.Key)
}

// MouseMove implements Injector.
func (x *XDoTool) MouseMove(display string, ev MouseMoveEvent) error {
	return x.run(display, "mousemove", strconv.Itoa(ev.X), strconv.Itoa(ev.Y))
}

// MouseButton implements Injector.
func (x *XDoTool) MouseButton(display string, ev MouseButtonEvent) error {
	action := "mouseup"
	if ev.Pressed {
		action = "mousedown"
	}
	return x.run(display, action, strconv.Itoa(ev.Button))
}

// Gamepad implements Injector.
func (x *XDoTool) Gamepad(display string, ev GamepadEvent) error {
	key, ok := gamepadKeymap[ev.Button]
	if !ok {
		return fmt.Errorf("unmapped gamepad button %q", ev.Button)
	}
	return x.Key(display, KeyEvent{Key: key, Pressed: ev.Pressed})
}
