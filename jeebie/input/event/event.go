package event

import "github.com/gbflame/gbflame/jeebie/input/action"

// Type represents the type of input event
type Type int

const (
	Press   Type = iota // Button pressed down (debounced)
	Release             // Button released (debounced)
	Hold                // Continuous while pressed (not debounced)
)

// InputEvent represents a single input event produced by a backend.
type InputEvent struct {
	Action action.Action
	Type   Type
}
