package driver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbflame/gbflame/flame/callstack"
	"github.com/gbflame/gbflame/flame/replay"
	"github.com/gbflame/gbflame/flame/symtab"
	"github.com/gbflame/gbflame/flame/trace"
	"github.com/gbflame/gbflame/jeebie/input/action"
	"github.com/gbflame/gbflame/jeebie/video"
)

// scriptedEmulator is a fake driver.Emulator: each RunFrame call runs the
// instructions queued for the current frame index against a given engine
// via a caller-supplied clock, then advances to the next frame's queue.
type scriptedEmulator struct {
	framePCs [][]uint16 // framePCs[i] is the pc trace for frame i
	frame    int
	clock    *Clock
	engine   *callstack.Engine
	actions  []action.Action
}

func (s *scriptedEmulator) RunFrame() int {
	pcs := s.framePCs[s.frame]
	s.frame++
	for _, pc := range pcs {
		at := s.clock.Tick(1)
		s.engine.HandleInstruction(0x00, pc, 0, at)
	}
	return len(pcs)
}

func (s *scriptedEmulator) HandleAction(act action.Action, press bool) {
	if press {
		s.actions = append(s.actions, act)
	}
}

func (s *scriptedEmulator) CurrentFrame() *video.FrameBuffer {
	return nil
}

type countingCapturer struct {
	calls int
}

func (c *countingCapturer) Capture(frameIndex int) (string, error) {
	c.calls++
	return fmt.Sprintf("frame_%d.png", frameIndex), nil
}

func buildEngine(extra []symtab.Symbol) (*callstack.Engine, *trace.Emitter, *symtab.SymbolMap) {
	m := symtab.Empty()
	m.Symbols = append(m.Symbols, extra...)
	names := make([]string, len(m.Symbols))
	for i, s := range m.Symbols {
		names[i] = s.Name
	}
	emitter := trace.NewEmitter(names)
	resolver := symtab.NewResolver(symtab.BuildRegions(m))
	engine := callstack.NewEngine(m, resolver, emitter)
	return engine, emitter, m
}

func TestDriverEmptyMap(t *testing.T) {
	engine, emitter, m := buildEngine(nil)
	clock := &Clock{}
	emu := &scriptedEmulator{framePCs: [][]uint16{nil}, clock: clock, engine: engine}
	capturer := &countingCapturer{}

	d := New(emu, capturer, clock, engine, emitter, nil, Config{
		StartFrame:  0,
		Frames:      1,
		CaptureMode: CaptureAll,
	}, nil)

	doc, err := d.Run()
	assert.NoError(t, err)
	assert.Len(t, doc.Shared.Frames, symtab.InterruptVectorCount)
	assert.Len(t, m.Symbols, symtab.InterruptVectorCount)
	assert.Empty(t, doc.Profiles[0].Events)
	assert.Len(t, doc.Captures, 1)
	assert.Equal(t, uint64(0), doc.Captures[0].At)
}

func TestDriverCaptureStartFilter(t *testing.T) {
	engine, emitter, m := buildEngine([]symtab.Symbol{
		{Name: "_main", Addr: 0x0150, Bank: 0},
		{Name: "_early", Addr: 0x0200, Bank: 0},
	})
	earlyIdx := symtab.InterruptVectorCount + 1
	clock := &Clock{}
	emu := &scriptedEmulator{
		framePCs: [][]uint16{
			{0x0150, 0x0200, 0x0151}, // frame 0: opens _main, opens and closes _early, all before capture start
			{},                       // frame 1: capture start, nothing new happens, _main stays open
		},
		clock:  clock,
		engine: engine,
	}
	capturer := &countingCapturer{}

	d := New(emu, capturer, clock, engine, emitter, nil, Config{
		StartFrame:  1,
		Frames:      1,
		CaptureMode: CaptureAll,
	}, nil)

	doc, err := d.Run()
	assert.NoError(t, err)
	assert.Len(t, m.Symbols, symtab.InterruptVectorCount+2)

	for _, ev := range doc.Profiles[0].Events {
		assert.NotEqual(t, earlyIdx, ev.Frame, "the early open/close pair closed before capture start and should have been dropped")
	}
	assert.Len(t, doc.Profiles[0].Events, 2, "_main's open/close pair spans the capture start and is kept")

	assert.Len(t, doc.Captures, 1)
	assert.Equal(t, 1, doc.Captures[0].FrameNumber)
}

func TestDriverAppliesReplayBeforeFrame(t *testing.T) {
	engine, emitter, _ := buildEngine(nil)
	clock := &Clock{}
	emu := &scriptedEmulator{framePCs: [][]uint16{nil, nil}, clock: clock, engine: engine}

	script := replay.Script{
		{Frame: 1, Press: []action.Action{action.GBButtonA}},
	}

	d := New(emu, nil, clock, engine, emitter, script, Config{
		StartFrame:  0,
		Frames:      2,
		CaptureMode: CaptureNone,
	}, nil)

	_, err := d.Run()
	assert.NoError(t, err)
	assert.Equal(t, []action.Action{action.GBButtonA}, emu.actions)
}

func TestDriverExitModeCapturesOnlyLastFrameAndDoesNotRecord(t *testing.T) {
	engine, emitter, _ := buildEngine(nil)
	clock := &Clock{}
	emu := &scriptedEmulator{framePCs: [][]uint16{nil, nil, nil}, clock: clock, engine: engine}
	capturer := &countingCapturer{}

	d := New(emu, capturer, clock, engine, emitter, nil, Config{
		StartFrame:  0,
		Frames:      3,
		CaptureMode: CaptureExit,
	}, nil)

	doc, err := d.Run()
	assert.NoError(t, err)
	assert.Equal(t, 1, capturer.calls)
	assert.Empty(t, doc.Captures)
}

func TestDriverProgressCallback(t *testing.T) {
	engine, emitter, _ := buildEngine(nil)
	clock := &Clock{}
	emu := &scriptedEmulator{framePCs: [][]uint16{nil, nil}, clock: clock, engine: engine}

	var calls [][2]int
	progress := func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}

	d := New(emu, nil, clock, engine, emitter, nil, Config{
		StartFrame:  0,
		Frames:      2,
		CaptureMode: CaptureNone,
	}, progress)

	_, err := d.Run()
	assert.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}
