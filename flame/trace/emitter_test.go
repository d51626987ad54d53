package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitterFinalize(t *testing.T) {
	t.Run("keeps a pair closed after the capture start", func(t *testing.T) {
		e := NewEmitter([]string{"main"})
		e.Open(0, 10)
		e.Close(0, 20, 10)

		doc := e.Finalize(0)
		assert.Len(t, doc.Profiles[0].Events, 2)
		assert.Equal(t, uint64(20), doc.Profiles[0].EndValue)
	})

	t.Run("drops a pair that closes before the capture start", func(t *testing.T) {
		e := NewEmitter([]string{"main"})
		e.Open(0, 10)
		e.Close(0, 20, 10)

		doc := e.Finalize(25)
		assert.Empty(t, doc.Profiles[0].Events)
		assert.Equal(t, uint64(0), doc.Profiles[0].EndValue)
	})

	t.Run("keeps a still-open frame with no close", func(t *testing.T) {
		e := NewEmitter([]string{"main"})
		e.Open(0, 10)

		doc := e.Finalize(0)
		assert.Len(t, doc.Profiles[0].Events, 1)
		assert.Equal(t, "O", doc.Profiles[0].Events[0].Type)
	})

	t.Run("sorts events by cycle, opens before closes on a tie", func(t *testing.T) {
		e := NewEmitter([]string{"a", "b"})
		e.Open(0, 10)
		e.Open(1, 20)
		e.Close(1, 20, 20)
		e.Close(0, 30, 10)

		doc := e.Finalize(0)
		events := doc.Profiles[0].Events
		assert.Len(t, events, 4)
		assert.Equal(t, "O", events[1].Type)
		assert.Equal(t, "C", events[2].Type)
	})

	t.Run("clamps a close that lands before its open", func(t *testing.T) {
		e := NewEmitter([]string{"main"})
		e.Close(0, 5, 10)
		assert.Equal(t, uint64(10), e.events[0].At)
	})

	t.Run("is idempotent", func(t *testing.T) {
		e := NewEmitter([]string{"main"})
		e.Open(0, 10)
		e.Close(0, 20, 10)

		first := e.Finalize(0)
		second := e.Finalize(0)
		assert.Equal(t, first, second)
	})

	t.Run("captures pass through untouched", func(t *testing.T) {
		e := NewEmitter([]string{"main"})
		e.Capture("frame_0.png", 5, 0)

		doc := e.Finalize(0)
		assert.Len(t, doc.Captures, 1)
		assert.Equal(t, "frame_0.png", doc.Captures[0].Src)
	})
}
