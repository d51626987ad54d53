// Package replay loads and applies a scripted sequence of joypad presses
// and releases, keyed by emulated frame number.
package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gbflame/gbflame/jeebie/input/action"
)

// FrameEvent is the set of buttons pressed and released during one
// emulated frame.
type FrameEvent struct {
	Frame   uint32
	Press   []action.Action
	Release []action.Action
}

// Script is a sequence of FrameEvents, typically loaded from JSON.
type Script []FrameEvent

type rawFrameEvent struct {
	Frame   uint32   `json:"frame"`
	Press   []string `json:"press,omitempty"`
	Release []string `json:"release,omitempty"`
}

var buttonNames = map[string]action.Action{
	"a":      action.GBButtonA,
	"b":      action.GBButtonB,
	"start":  action.GBButtonStart,
	"select": action.GBButtonSelect,
	"up":     action.GBDPadUp,
	"down":   action.GBDPadDown,
	"left":   action.GBDPadLeft,
	"right":  action.GBDPadRight,
}

// Load decodes a JSON array of frame events of the form
// {"frame": 10, "press": ["a"], "release": ["up"]}.
func Load(r io.Reader) (Script, error) {
	var raw []rawFrameEvent
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("replay: parse script: %w", err)
	}

	script := make(Script, len(raw))
	for i, re := range raw {
		press, err := resolveButtons(re.Press)
		if err != nil {
			return nil, fmt.Errorf("replay: frame %d press: %w", re.Frame, err)
		}
		release, err := resolveButtons(re.Release)
		if err != nil {
			return nil, fmt.Errorf("replay: frame %d release: %w", re.Frame, err)
		}
		script[i] = FrameEvent{Frame: re.Frame, Press: press, Release: release}
	}
	return script, nil
}

func resolveButtons(names []string) ([]action.Action, error) {
	if len(names) == 0 {
		return nil, nil
	}
	actions := make([]action.Action, len(names))
	for i, n := range names {
		act, ok := buttonNames[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("unknown button %q", n)
		}
		actions[i] = act
	}
	return actions, nil
}

// ActionTarget is whatever a Script's presses and releases get applied to.
// *jeebie.DMG and driver.Emulator both satisfy this.
type ActionTarget interface {
	HandleAction(act action.Action, press bool)
}

// Apply issues every release then every press scheduled for frame on
// target. Releases go first so a script can express "this button was
// already held and is let go this frame" without the press from an
// earlier frame's event re-firing.
func Apply(script Script, frame uint32, target ActionTarget) {
	for _, ev := range script {
		if ev.Frame != frame {
			continue
		}
		for _, act := range ev.Release {
			target.HandleAction(act, false)
		}
		for _, act := range ev.Press {
			target.HandleAction(act, true)
		}
	}
}
