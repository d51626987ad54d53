package trace

import "sort"

// Emitter accumulates open/close frame events and captures over a run and
// produces a finalized Speedscope Document from them.
type Emitter struct {
	frames   []Frame
	events   []Event
	captures []Capture
}

// NewEmitter creates an Emitter whose frame list is exactly the given
// names, in order — typically a symtab.SymbolMap's symbol names, so frame
// index lines up with symbol index.
func NewEmitter(frameNames []string) *Emitter {
	frames := make([]Frame, len(frameNames))
	for i, n := range frameNames {
		frames[i] = Frame{Name: n}
	}
	return &Emitter{frames: frames}
}

// Open records a frame opening at cycle at.
func (e *Emitter) Open(symbolIndex int, at uint64) {
	e.events = append(e.events, Event{Type: "O", At: at, Frame: symbolIndex})
}

// Close records a frame closing at cycle at. The close is clamped to never
// land before the matching open, since a frame can't close before it opened.
func (e *Emitter) Close(symbolIndex int, at uint64, openAt uint64) {
	if at < openAt {
		at = openAt
	}
	e.events = append(e.events, Event{Type: "C", At: at, Frame: symbolIndex})
}

// Capture records a framebuffer save at cycle at, during emulated frame
// frameNumber.
func (e *Emitter) Capture(src string, at uint64, frameNumber int) {
	e.captures = append(e.captures, Capture{Src: src, At: at, FrameNumber: frameNumber})
}

// Finalize sorts the accumulated events by cycle (opens before closes on a
// tie), drops any open/close pair whose close lands before
// captureStartCycle, and returns the resulting Document. Still-open frames
// with no matching close are always kept. Finalize doesn't mutate the
// Emitter's own state, so calling it again — with the same
// captureStartCycle — reproduces the same Document.
func (e *Emitter) Finalize(captureStartCycle uint64) *Document {
	events := make([]Event, len(e.events))
	copy(events, e.events)

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].At != events[j].At {
			return events[i].At < events[j].At
		}
		return events[i].Type == "O" && events[j].Type == "C"
	})

	keep := make([]bool, len(events))
	openIndex := make(map[int][]int)
	for i, ev := range events {
		switch ev.Type {
		case "O":
			openIndex[ev.Frame] = append(openIndex[ev.Frame], i)
		case "C":
			stack := openIndex[ev.Frame]
			if len(stack) == 0 {
				continue
			}
			o := stack[len(stack)-1]
			openIndex[ev.Frame] = stack[:len(stack)-1]
			if ev.At >= captureStartCycle {
				keep[i] = true
				keep[o] = true
			}
		}
	}
	for _, stack := range openIndex {
		for _, idx := range stack {
			keep[idx] = true
		}
	}

	retained := make([]Event, 0, len(events))
	for i, ev := range events {
		if keep[i] {
			retained = append(retained, ev)
		}
	}

	var endValue uint64
	for _, ev := range retained {
		if ev.At > endValue {
			endValue = ev.At
		}
	}

	return &Document{
		Schema:             schemaURL,
		ActiveProfileIndex: 0,
		Shared:             Shared{Frames: e.frames},
		Profiles: []Profile{{
			Type:       "evented",
			Name:       "call tree",
			Unit:       "none",
			StartValue: 0,
			EndValue:   endValue,
			Events:     retained,
		}},
		Captures: append([]Capture(nil), e.captures...),
	}
}
