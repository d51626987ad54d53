package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/gbflame/gbflame/jeebie/addr"
	"github.com/gbflame/gbflame/jeebie/memory"
)

func TestInterruptHandling(t *testing.T) {
	t.Run("interrupts disabled by default", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)

		mmu.Write(addr.IF, 0x01)
		mmu.Write(addr.IE, 0x01)

		pending := cpu.handleInterrupts()
		assert.True(t, pending)
		assert.Equal(t, uint16(0x100), cpu.pc)
	})

	t.Run("EI enables interrupts with delay", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)

		opcode0xFB(cpu)
		assert.False(t, cpu.interruptsEnabled)
		assert.True(t, cpu.eiPending)

		// simulate the end of Exec() which applies the EI delay
		if cpu.eiPending {
			cpu.eiPending = false
			cpu.interruptsEnabled = true
		}

		assert.True(t, cpu.interruptsEnabled)
		assert.False(t, cpu.eiPending)
	})

	t.Run("DI disables interrupts immediately", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true

		opcode0xF3(cpu)
		assert.False(t, cpu.interruptsEnabled)
	})

	t.Run("interrupt priority order", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true

		mmu.Write(addr.IF, 0x1F)
		mmu.Write(addr.IE, 0x1F)

		cpu.handleInterrupts()

		assert.Equal(t, uint16(0x40), cpu.pc)
		assert.Equal(t, uint8(0x1E), mmu.Read(addr.IF))
	})

	t.Run("RETI enables interrupts and returns", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = false
		cpu.sp = 0xFFFE
		cpu.pc = 0x200

		cpu.pushStack(0x150)

		opcode0xD9(cpu)

		assert.True(t, cpu.interruptsEnabled)
		assert.Equal(t, uint16(0x150), cpu.pc)
	})
}

func TestHALTBehavior(t *testing.T) {
	t.Run("HALT with IME=1 and pending interrupt", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true

		opcode0x76(cpu)
		assert.True(t, cpu.halted)

		mmu.Write(addr.IF, 0x01)
		mmu.Write(addr.IE, 0x01)

		// simulate Exec() handling interrupts and waking from HALT
		interruptPending := cpu.handleInterrupts()
		if cpu.halted && interruptPending {
			cpu.halted = false
		}
		assert.False(t, cpu.halted)
		assert.Equal(t, uint16(0x40), cpu.pc)
	})

	t.Run("HALT with IME=0 and pending interrupt wakes but doesn't service", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = false
		cpu.pc = 0x100

		opcode0x76(cpu)
		assert.True(t, cpu.halted)

		mmu.Write(addr.IF, 0x01)
		mmu.Write(addr.IE, 0x01)

		// simulate Exec() waking from HALT with IME=0
		interruptPending := cpu.handleInterrupts()
		if cpu.halted && interruptPending {
			cpu.halted = false
			if !cpu.interruptsEnabled {
				cpu.haltBug = true
			}
		}
		assert.False(t, cpu.halted)
		assert.True(t, cpu.haltBug)
		assert.Equal(t, uint16(0x100), cpu.pc) // PC unchanged
	})

	t.Run("HALT with IME=0 and no interrupt stays halted", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = false

		opcode0x76(cpu)
		assert.True(t, cpu.halted)

		mmu.Write(addr.IF, 0x00)
		mmu.Write(addr.IE, 0x01)

		interruptPending := cpu.handleInterrupts()
		assert.False(t, interruptPending)
		assert.True(t, cpu.halted)
	})
}

func TestInstructionHook(t *testing.T) {
	t.Run("fires once per Exec with the pre-execution opcode and PC", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.pc = 0x100
		mmu.Write(0x100, 0x00) // NOP

		var gotOpcode uint8
		var gotPC uint16
		calls := 0
		cpu.InstructionHook = func(opcode uint8, pc uint16, cycles int) {
			calls++
			gotOpcode = opcode
			gotPC = pc
		}

		cpu.Exec()

		assert.Equal(t, 1, calls)
		assert.Equal(t, uint8(0x00), gotOpcode)
		assert.Equal(t, uint16(0x100), gotPC)
	})

	t.Run("does not fire while still halted with no pending interrupt", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = false
		cpu.halted = true

		calls := 0
		cpu.InstructionHook = func(opcode uint8, pc uint16, cycles int) { calls++ }

		cpu.Exec()

		assert.Equal(t, 0, calls)
	})
}

func TestInterruptHook(t *testing.T) {
	t.Run("fires with the dispatched interrupt's index before the vector is pushed", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true
		cpu.pc = 0x300

		mmu.Write(addr.IF, 0x04) // timer, bit 2
		mmu.Write(addr.IE, 0x04)

		var gotIndex uint8
		var pcAtFire uint16
		cpu.InterruptHook = func(index uint8) {
			gotIndex = index
			pcAtFire = cpu.pc
		}

		cpu.handleInterrupts()

		assert.Equal(t, uint8(2), gotIndex)
		assert.Equal(t, uint16(0x300), pcAtFire)
		assert.Equal(t, uint16(0x50), cpu.pc)
	})

	t.Run("does not fire when interrupts are globally disabled", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = false

		mmu.Write(addr.IF, 0x01)
		mmu.Write(addr.IE, 0x01)

		calls := 0
		cpu.InterruptHook = func(index uint8) { calls++ }

		cpu.handleInterrupts()

		assert.Equal(t, 0, calls)
	})
}

func TestSetDisabledInterrupts(t *testing.T) {
	t.Run("masked-off interrupts never dispatch even when enabled and pending", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true
		cpu.SetDisabledInterrupts(0x01) // VBlank forced off

		mmu.Write(addr.IF, 0x01)
		mmu.Write(addr.IE, 0x01)

		pending := cpu.handleInterrupts()

		assert.False(t, pending)
		assert.Equal(t, uint16(0x100), cpu.pc)
	})

	t.Run("other interrupts still dispatch normally", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true
		cpu.SetDisabledInterrupts(0x01) // VBlank forced off

		mmu.Write(addr.IF, 0x02) // LCD STAT
		mmu.Write(addr.IE, 0x02)

		cpu.handleInterrupts()

		assert.Equal(t, uint16(0x48), cpu.pc)
	})
}

func TestCurrentROMBank(t *testing.T) {
	t.Run("reports the bank the bus currently has mapped", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)

		assert.Equal(t, mmu.CurrentROMBank(), cpu.bus.CurrentROMBank())
	})
}

func TestInterruptTiming(t *testing.T) {
	t.Run("interrupt dispatch takes 20 cycles", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu)
		cpu.interruptsEnabled = true
		cpu.cycles = 0

		mmu.Write(addr.IF, 0x01)
		mmu.Write(addr.IE, 0x01)

		startCycles := cpu.cycles
		cpu.handleInterrupts()

		assert.Equal(t, uint64(20), cpu.cycles-startCycles)
	})
}
