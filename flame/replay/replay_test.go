package replay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbflame/gbflame/jeebie/input/action"
)

type recordedCall struct {
	action action.Action
	press  bool
}

type fakeTarget struct {
	calls []recordedCall
}

func (f *fakeTarget) HandleAction(act action.Action, press bool) {
	f.calls = append(f.calls, recordedCall{act, press})
}

func TestLoad(t *testing.T) {
	t.Run("decodes a script with press and release lists", func(t *testing.T) {
		script, err := Load(strings.NewReader(`[
			{"frame": 0, "press": ["a", "Right"]},
			{"frame": 10, "release": ["a"], "press": ["start"]}
		]`))
		assert.NoError(t, err)
		assert.Equal(t, Script{
			{Frame: 0, Press: []action.Action{action.GBButtonA, action.GBDPadRight}},
			{Frame: 10, Press: []action.Action{action.GBButtonStart}, Release: []action.Action{action.GBButtonA}},
		}, script)
	})

	t.Run("rejects an unknown button name", func(t *testing.T) {
		_, err := Load(strings.NewReader(`[{"frame": 0, "press": ["nonexistent"]}]`))
		assert.Error(t, err)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := Load(strings.NewReader(`not json`))
		assert.Error(t, err)
	})

	t.Run("empty script decodes to an empty slice", func(t *testing.T) {
		script, err := Load(strings.NewReader(`[]`))
		assert.NoError(t, err)
		assert.Empty(t, script)
	})
}

func TestApply(t *testing.T) {
	t.Run("issues releases before presses for a matching frame", func(t *testing.T) {
		script := Script{
			{Frame: 5, Press: []action.Action{action.GBButtonA}, Release: []action.Action{action.GBDPadUp}},
		}
		target := &fakeTarget{}
		Apply(script, 5, target)

		assert.Equal(t, []recordedCall{
			{action.GBDPadUp, false},
			{action.GBButtonA, true},
		}, target.calls)
	})

	t.Run("only applies events scheduled for the given frame", func(t *testing.T) {
		script := Script{
			{Frame: 0, Press: []action.Action{action.GBButtonA}},
			{Frame: 1, Press: []action.Action{action.GBButtonB}},
		}
		target := &fakeTarget{}
		Apply(script, 1, target)

		assert.Equal(t, []recordedCall{{action.GBButtonB, true}}, target.calls)
	})

	t.Run("does nothing for a frame with no scheduled events", func(t *testing.T) {
		script := Script{{Frame: 0, Press: []action.Action{action.GBButtonA}}}
		target := &fakeTarget{}
		Apply(script, 99, target)

		assert.Empty(t, target.calls)
	})

	t.Run("applies every matching event when multiple share a frame", func(t *testing.T) {
		script := Script{
			{Frame: 3, Press: []action.Action{action.GBButtonA}},
			{Frame: 3, Press: []action.Action{action.GBButtonB}},
		}
		target := &fakeTarget{}
		Apply(script, 3, target)

		assert.Equal(t, []recordedCall{
			{action.GBButtonA, true},
			{action.GBButtonB, true},
		}, target.calls)
	})
}
