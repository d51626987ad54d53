package jeebie

import (
	"github.com/gbflame/gbflame/jeebie/addr"
	"github.com/gbflame/gbflame/jeebie/cpu"
	"github.com/gbflame/gbflame/jeebie/memory"
	"github.com/gbflame/gbflame/jeebie/video"
)

// BusInterface defines the interface for component communication
type BusInterface interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	RequestInterrupt(interrupt addr.Interrupt)
}

// Bus provides centralized component communication
type Bus struct {
	CPU *cpu.CPU
	MMU *memory.MMU
	GPU *video.GPU
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Read(address uint16) byte {
	return b.MMU.Read(address)
}

func (b *Bus) Write(address uint16, value byte) {
	b.MMU.Write(address, value)
}

// Tick advances the non-CPU components (memory-mapped timers, GPU, APU) by
// the given number of cycles. The CPU calls this mid-instruction to keep
// peripherals in step with bus accesses.
func (b *Bus) Tick(cycles int) {
	b.MMU.Tick(cycles)
	b.GPU.Tick(cycles)
	b.MMU.APU.Tick(cycles)
}

// TickInstruction executes one CPU instruction and ticks all components.
// Returns the number of cycles consumed.
func (b *Bus) TickInstruction() int {
	cycles := b.CPU.Exec()
	b.Tick(cycles)
	return cycles
}

func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	b.MMU.RequestInterrupt(interrupt)
}

func (b *Bus) ReadBit(index uint8, address uint16) bool {
	return b.MMU.ReadBit(index, address)
}

// CurrentROMBank returns the ROM bank currently mapped at 0x4000-0x7FFF.
func (b *Bus) CurrentROMBank() uint8 {
	return b.MMU.CurrentROMBank()
}
