// Package driver runs the per-frame loop that drives an emulator through a
// profiling run: apply scripted input, advance one frame, capture the
// framebuffer when configured to, and hand everything to the call-stack
// engine and trace emitter as it happens.
package driver

import (
	"fmt"
	"log/slog"

	"github.com/gbflame/gbflame/flame/callstack"
	"github.com/gbflame/gbflame/flame/replay"
	"github.com/gbflame/gbflame/flame/trace"
	"github.com/gbflame/gbflame/jeebie/input/action"
	"github.com/gbflame/gbflame/jeebie/video"
)

// CyclesPerFrame is the profiler's own notion of a frame's length in
// cycles. It is deliberately not the backend's real hardware frame length
// (70224 for the DMG): it only needs to keep global_cycle monotonically
// increasing across frames by more than any single frame can tick, so
// within-frame cycle counts from the instruction hook never wrap into the
// next frame's range.
const CyclesPerFrame = 70256

// Clock tracks the run's global cycle counter: cycles ticked so far within
// the current frame, plus CyclesPerFrame for every frame already finished.
// A Clock is shared between the Driver (which advances it at frame
// boundaries) and whatever wires an emulator's per-instruction hook to the
// callstack.Engine (which ticks it per instruction).
type Clock struct {
	framesElapsed uint64
	perFrame      uint64
}

// Tick advances the clock by cycles spent on one instruction and returns
// the resulting global cycle.
func (c *Clock) Tick(cycles int) uint64 {
	c.perFrame += uint64(cycles)
	return c.Global()
}

// Global returns the current global cycle count.
func (c *Clock) Global() uint64 {
	return c.perFrame + c.framesElapsed*CyclesPerFrame
}

func (c *Clock) nextFrame() {
	c.framesElapsed++
	c.perFrame = 0
}

// Emulator is the narrow surface the Driver needs to run frames and feed
// input, deliberately smaller than jeebie.Emulator so it can be driven by
// a scripted fake in tests without a real CPU/MMU/GPU behind it.
type Emulator interface {
	RunFrame() (cycles int)
	HandleAction(act action.Action, press bool)
	CurrentFrame() *video.FrameBuffer
}

// FrameCapturer saves the emulator's current framebuffer somewhere (disk,
// typically) and reports where it went.
type FrameCapturer interface {
	Capture(frameIndex int) (src string, err error)
}

// CaptureMode controls when framebuffer captures happen and whether they're
// recorded into the trace.
type CaptureMode int

const (
	// CaptureAll captures every frame from startFrame on and records each
	// one into the trace's capture list.
	CaptureAll CaptureMode = iota
	// CaptureExit captures only the last frame of the run, saved to disk
	// but not recorded into the trace.
	CaptureExit
	// CaptureNone never captures.
	CaptureNone
)

// Config is a run's frame-range and capture settings.
type Config struct {
	StartFrame  int
	Frames      int
	CaptureMode CaptureMode
}

// ProgressFunc is called after every frame with frames completed and the
// total frame count for the run.
type ProgressFunc func(done, total int)

// Driver owns the per-frame loop: applying replay input, advancing the
// emulator, requesting captures, and finalizing the trace once the run
// ends.
type Driver struct {
	emu      Emulator
	capturer FrameCapturer
	clock    *Clock
	engine   *callstack.Engine
	emitter  *trace.Emitter
	script   replay.Script
	cfg      Config
	progress ProgressFunc
}

// New creates a Driver. clock must be the same Clock instance wired into
// the emulator's instruction/interrupt hooks, since the Driver advances it
// at frame boundaries while the hooks advance it within a frame.
func New(emu Emulator, capturer FrameCapturer, clock *Clock, engine *callstack.Engine, emitter *trace.Emitter, script replay.Script, cfg Config, progress ProgressFunc) *Driver {
	return &Driver{
		emu:      emu,
		capturer: capturer,
		clock:    clock,
		engine:   engine,
		emitter:  emitter,
		script:   script,
		cfg:      cfg,
		progress: progress,
	}
}

// Run executes the configured frame range and returns the finalized trace.
func (d *Driver) Run() (*trace.Document, error) {
	if d.cfg.Frames <= 0 {
		return nil, fmt.Errorf("driver: frames must be positive, got %d", d.cfg.Frames)
	}

	total := d.cfg.StartFrame + d.cfg.Frames
	var captureStartCycle uint64
	haveCaptureStart := false

	for i := 0; i < total; i++ {
		replay.Apply(d.script, uint32(i), d.emu)

		frameStartCycle := d.clock.Global()

		d.emu.RunFrame()
		d.clock.nextFrame()

		if d.progress != nil {
			d.progress(i+1, total)
		}

		if i < d.cfg.StartFrame {
			continue
		}
		if !haveCaptureStart {
			captureStartCycle = frameStartCycle
			haveCaptureStart = true
		}
		d.maybeCapture(i, frameStartCycle, total)
	}

	d.engine.Shutdown(d.clock.Global())
	return d.emitter.Finalize(captureStartCycle), nil
}

func (d *Driver) maybeCapture(frameIndex int, frameStartCycle uint64, total int) {
	if d.cfg.CaptureMode == CaptureNone || d.capturer == nil {
		return
	}
	if d.cfg.CaptureMode == CaptureExit && frameIndex != total-1 {
		return
	}

	src, err := d.capturer.Capture(frameIndex)
	if err != nil {
		slog.Error("frame capture failed", "frame", frameIndex, "error", err)
		return
	}

	if d.cfg.CaptureMode == CaptureAll {
		d.emitter.Capture(src, frameStartCycle, frameIndex)
	}
}
