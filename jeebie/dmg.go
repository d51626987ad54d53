package jeebie

import (
	"log/slog"
	"os"

	"github.com/gbflame/gbflame/jeebie/addr"
	"github.com/gbflame/gbflame/jeebie/cpu"
	"github.com/gbflame/gbflame/jeebie/debug"
	"github.com/gbflame/gbflame/jeebie/input/action"
	"github.com/gbflame/gbflame/jeebie/memory"
	"github.com/gbflame/gbflame/jeebie/timing"
	"github.com/gbflame/gbflame/jeebie/video"
)

// debugSnapshotWindow is how many bytes around PC are captured into a
// CompleteDebugData memory snapshot.
const debugSnapshotWindow = 128

// DMG is a complete Dot Matrix Game backend: cpu.CPU, memory.MMU and
// video.GPU wired together behind a Bus, driven either interactively
// (RunUntilFrame, for the jeebie.Emulator surface shared with the
// terminal/SDL backends) or one frame at a time for profiling
// (RunFrame).
type DMG struct {
	cpu *cpu.CPU
	mem *memory.MMU
	gpu *video.GPU
	bus *Bus

	limiter timing.Limiter
}

var _ Emulator = (*DMG)(nil)

func newDMG(cart *memory.Cartridge, screen *video.Screen) *DMG {
	mem := memory.NewWithCartridge(cart)
	gpu := video.NewGpu(screen, mem)

	bus := NewBus()
	bus.MMU = mem
	bus.GPU = gpu
	bus.CPU = cpu.New(bus)

	return &DMG{
		cpu:     bus.CPU,
		mem:     mem,
		gpu:     gpu,
		bus:     bus,
		limiter: timing.NewNoOpLimiter(),
	}
}

// New creates a DMG with no cartridge loaded, equivalent to turning on a
// Game Boy with an empty slot.
func New() *DMG {
	return newDMG(memory.NewCartridge(), nil)
}

// NewWithFile creates a DMG and loads the ROM at path into it.
func NewWithFile(path string) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("loaded ROM data", "path", path, "bytes", len(data))

	return newDMG(memory.NewCartridgeWithData(data), nil), nil
}

// SetDisabledInterrupts forwards to the underlying CPU: bits set here never
// fire regardless of the IE register.
func (d *DMG) SetDisabledInterrupts(mask uint8) {
	d.cpu.SetDisabledInterrupts(mask)
}

// SetInstructionHook installs the per-instruction hook on the underlying CPU.
// Passing nil clears it.
func (d *DMG) SetInstructionHook(hook func(opcode uint8, pc uint16, cycles int)) {
	d.cpu.InstructionHook = hook
}

// SetInterruptHook installs the per-interrupt-dispatch hook on the
// underlying CPU. Passing nil clears it.
func (d *DMG) SetInterruptHook(hook func(index uint8)) {
	d.cpu.InterruptHook = hook
}

// CurrentROMBank returns the ROM bank currently mapped at 0x4000-0x7FFF.
func (d *DMG) CurrentROMBank() uint8 {
	return d.bus.CurrentROMBank()
}

// RunFrame advances the emulation by exactly one video frame's worth of
// cycles (timing.CyclesPerFrame) and returns the number of cycles actually
// consumed, which can overshoot slightly since instructions aren't
// interruptible mid-execution.
func (d *DMG) RunFrame() (cycles int) {
	for cycles < timing.CyclesPerFrame {
		cycles += d.bus.TickInstruction()
	}
	return cycles
}

// RunUntilFrame advances one frame and paces itself against the configured
// frame limiter, for interactive backends.
func (d *DMG) RunUntilFrame() error {
	d.RunFrame()
	d.limiter.WaitForNextFrame()
	return nil
}

// SetFrameLimiter overrides the pacing used by RunUntilFrame. Passing nil
// restores the no-op limiter, running as fast as possible.
func (d *DMG) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	d.limiter = limiter
}

// GetCurrentFrame returns the GPU's current framebuffer.
func (d *DMG) GetCurrentFrame() *video.FrameBuffer {
	return d.gpu.GetFrameBuffer()
}

// CurrentFrame is an alias of GetCurrentFrame for consumers that only know
// about the profiling-facing Emulator contract.
func (d *DMG) CurrentFrame() *video.FrameBuffer {
	return d.GetCurrentFrame()
}

// HandleAction applies a joypad button press or release. Non Game-Boy
// actions (debug toggles, snapshots, ...) are the interactive backends'
// concern and are ignored here.
func (d *DMG) HandleAction(act action.Action, pressed bool) {
	key, ok := joypadKeyFor(act)
	if !ok {
		return
	}

	if pressed {
		d.mem.HandleKeyPress(key)
	} else {
		d.mem.HandleKeyRelease(key)
	}
}

func joypadKeyFor(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	default:
		return 0, false
	}
}

// ExtractDebugData reports nil until the DMG has a live CPU and memory,
// matching the zero-value contract core_test.go already exercises.
func (d *DMG) ExtractDebugData() *debug.CompleteDebugData {
	if d.cpu == nil || d.mem == nil {
		return nil
	}

	pc := d.cpu.GetPC()
	snapshotSize := debugSnapshotWindow
	if uint32(pc)+uint32(snapshotSize) > 0x10000 {
		snapshotSize = 0x10000 - int(pc)
	}

	bytes := make([]uint8, snapshotSize)
	for i := range bytes {
		bytes[i] = d.mem.Read(pc + uint16(i))
	}

	return &debug.CompleteDebugData{
		OAM:  debug.ExtractOAMData(d.mem, int(d.mem.Read(addr.LY)), 8),
		VRAM: debug.ExtractVRAMData(d.mem),
		CPU: &debug.CPUState{
			A: d.cpu.GetA(), F: d.cpu.GetF(),
			B: d.cpu.GetB(), C: d.cpu.GetC(),
			D: d.cpu.GetD(), E: d.cpu.GetE(),
			H: d.cpu.GetH(), L: d.cpu.GetL(),
			SP: d.cpu.GetSP(), PC: pc,
			IME:    d.cpu.GetIME(),
			Cycles: d.cpu.GetCycles(),
		},
		Memory: &debug.MemorySnapshot{
			StartAddr: pc,
			Bytes:     bytes,
		},
		DebuggerState:   debug.DebuggerRunning,
		InterruptEnable: d.cpu.GetIE(),
		InterruptFlags:  d.cpu.GetIF(),
	}
}

