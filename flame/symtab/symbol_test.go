package symtab

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("empty map still seeds interrupt vectors", func(t *testing.T) {
		m, err := Parse(strings.NewReader(""))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount)
		assert.Equal(t, "[INTERRUPT] VBL", m.Symbols[0].Name)
		assert.Equal(t, uint16(0x40), m.Symbols[0].Addr)
		assert.Equal(t, "[INTERRUPT] JOY", m.Symbols[4].Name)
		assert.Equal(t, uint16(0x60), m.Symbols[4].Addr)
	})

	t.Run("accepts a plain global symbol", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $0150 _main\n"))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount+1)
		sym := m.Symbols[InterruptVectorCount]
		assert.Equal(t, "_main", sym.Name)
		assert.Equal(t, uint16(0x0150), sym.Addr)
		assert.Equal(t, uint8(0), sym.Bank)
	})

	t.Run("decomposes a banked address", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $014100 _foo\n"))
		assert.NoError(t, err)
		sym := m.Symbols[InterruptVectorCount]
		assert.Equal(t, uint16(0x4100), sym.Addr)
		assert.Equal(t, uint8(0x01), sym.Bank)
	})

	t.Run("forces bank 0 below 0x4000 regardless of encoded bank", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $010150 _weird\n"))
		assert.NoError(t, err)
		sym := m.Symbols[InterruptVectorCount]
		assert.Equal(t, uint16(0x0150), sym.Addr)
		assert.Equal(t, uint8(0), sym.Bank)
	})

	t.Run("canonicalizes F...$ local-scope names", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $014100 F_update$state$002_handle_input\n"))
		assert.NoError(t, err)
		sym := m.Symbols[InterruptVectorCount]
		assert.Equal(t, "state", sym.Name)
	})

	t.Run("strips a trailing $ suffix with no F prefix", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $4100 _helper$003\n"))
		assert.NoError(t, err)
		sym := m.Symbols[InterruptVectorCount]
		assert.Equal(t, "_helper", sym.Name)
	})

	t.Run("rejects names with no accept-pattern match", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $4100 somethingElse\n"))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount)
	})

	t.Run("rejects register/RAM/ROM/MBC names even though they'd otherwise match", func(t *testing.T) {
		lines := []string{
			"DEF $4100 _SPRITE00_REG",
			"DEF $4100 _buffer_rRAM",
			"DEF $4100 _table_rROM",
			"DEF $4100 _bank_rMBC",
			"DEF $4100 .__start_save_area",
			"DEF $4100 ___bank_0",
			"DEF $4100 ___func_table",
			"DEF $4100 ___mute_mask_lookup",
		}
		m, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount)
	})

	t.Run("accepts interrupt-service-routine and runtime-helper names", func(t *testing.T) {
		lines := []string{
			"DEF $4100 .vblank_ISR",
			"DEF $4200 .remove_sprite",
			"DEF $4300 .add_VBL",
			"DEF $4400 .mod",
			"DEF $4500 .div",
		}
		m, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount+5)
	})

	t.Run("dedups by (bank, addr), first occurrence wins", func(t *testing.T) {
		m, err := Parse(strings.NewReader("DEF $4100 _first\nDEF $4100 _second\n"))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount+1)
		assert.Equal(t, "_first", m.Symbols[InterruptVectorCount].Name)
	})

	t.Run("skips lines that aren't definitions", func(t *testing.T) {
		m, err := Parse(strings.NewReader("; a comment\n\nSECTION HOME\nDEF $4100 _main\n"))
		assert.NoError(t, err)
		assert.Len(t, m.Symbols, InterruptVectorCount+1)
	})
}

func TestEmpty(t *testing.T) {
	m := Empty()
	assert.Len(t, m.Symbols, InterruptVectorCount)
}
