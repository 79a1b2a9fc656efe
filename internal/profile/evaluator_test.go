package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/function"
)

func TestInterpolate(t *testing.T) {
	curve := []device.DutyPoint{{Temp: 20, Duty: 30}, {Temp: 40, Duty: 60}, {Temp: 60, Duty: 100}}

	t.Run("mid-curve interpolation", func(t *testing.T) {
		assert.Equal(t, uint8(45), Interpolate(curve, 30))
	})
	t.Run("below first clamps", func(t *testing.T) {
		assert.Equal(t, uint8(30), Interpolate(curve, 10))
	})
	t.Run("above last clamps", func(t *testing.T) {
		assert.Equal(t, uint8(100), Interpolate(curve, 70))
	})
	t.Run("exact point", func(t *testing.T) {
		assert.Equal(t, uint8(60), Interpolate(curve, 40))
	})
}

func newFixtureEvaluator(t *testing.T, profiles map[device.UID]Profile, minDuty, maxDuty uint8) *Evaluator {
	t.Helper()
	funcs := map[device.UID]function.Function{function.IdentityUID: function.DefaultFunction()}
	states := map[string]*function.State{}

	e := NewEvaluator(
		func(uid device.UID) (Profile, bool) { p, ok := profiles[uid]; return p, ok },
		func(uid device.UID) (function.Function, bool) { f, ok := funcs[uid]; return f, ok },
		func(src TempSource, window int) []float64 { return nil },
		func(profileUID device.UID, channelName string) *function.State {
			key := string(profileUID) + "/" + channelName
			if states[key] == nil {
				states[key] = &function.State{}
			}
			return states[key]
		},
	)
	e.MinDuty = minDuty
	e.MaxDuty = maxDuty
	return e
}

func TestResolveGraphClampedToChannelRange(t *testing.T) {
	curve := []device.DutyPoint{{Temp: 20, Duty: 30}, {Temp: 40, Duty: 60}, {Temp: 60, Duty: 100}}
	graphUID := device.UID("graph-1")
	profiles := map[device.UID]Profile{
		graphUID: {
			UID: graphUID, Type: Graph, SpeedProfile: curve,
			TempSource:  TempSource{DeviceUID: "d1", TempName: "coolant"},
			FunctionUID: function.IdentityUID,
		},
	}

	cases := []struct {
		temp     float64
		expected uint8
	}{
		{30, 45}, {10, 30}, {70, 80},
	}

	for _, c := range cases {
		e := newFixtureEvaluator(t, profiles, 20, 80)
		e.Samples = func(src TempSource, window int) []float64 { return []float64{c.temp} }
		duty, ok, err := e.Resolve(graphUID, "fan1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, c.expected, duty)
	}
}

func TestResolveFixed(t *testing.T) {
	uid := device.UID("fixed-1")
	profiles := map[device.UID]Profile{uid: {UID: uid, Type: Fixed, SpeedFixed: 55}}
	e := newFixtureEvaluator(t, profiles, 0, 100)

	duty, ok, err := e.Resolve(uid, "pump")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(55), duty)
}

func TestResolveDefaultIsNoOp(t *testing.T) {
	uid := DefaultUID
	profiles := map[device.UID]Profile{uid: DefaultProfile()}
	e := newFixtureEvaluator(t, profiles, 0, 100)

	_, ok, err := e.Resolve(uid, "fan1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveMixTakesMax(t *testing.T) {
	memberA := device.UID("member-a")
	memberB := device.UID("member-b")
	memberDefault := device.UID("member-default")
	mixUID := device.UID("mix-1")

	profiles := map[device.UID]Profile{
		memberA:       {UID: memberA, Type: Fixed, SpeedFixed: 40},
		memberB:       {UID: memberB, Type: Fixed, SpeedFixed: 70},
		memberDefault: DefaultProfile(),
		mixUID:        {UID: mixUID, Type: Mix, MemberProfileUIDs: []device.UID{memberA, memberB, memberDefault}},
	}
	e := newFixtureEvaluator(t, profiles, 0, 100)

	duty, ok, err := e.Resolve(mixUID, "fan1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(70), duty)
}

func TestResolveMixCycleDetected(t *testing.T) {
	mixA := device.UID("mix-a")
	mixB := device.UID("mix-b")
	profiles := map[device.UID]Profile{
		mixA: {UID: mixA, Type: Mix, MemberProfileUIDs: []device.UID{mixB}},
		mixB: {UID: mixB, Type: Mix, MemberProfileUIDs: []device.UID{mixA}},
	}
	e := newFixtureEvaluator(t, profiles, 0, 100)

	_, _, err := e.Resolve(mixA, "fan1")
	require.Error(t, err)
}

func TestMixReducers(t *testing.T) {
	duties := []uint8{40, 70, 55}
	assert.Equal(t, uint8(70), Max(duties))
	assert.Equal(t, uint8(40), Min(duties))
	assert.Equal(t, uint8(55), Avg(duties))
}

func TestProfileValidate(t *testing.T) {
	t.Run("graph requires temp source", func(t *testing.T) {
		p := Profile{Type: Graph, SpeedProfile: []device.DutyPoint{{Temp: 1, Duty: 1}, {Temp: 2, Duty: 2}}}
		assert.Error(t, p.Validate())
	})
	t.Run("graph requires sorted curve", func(t *testing.T) {
		p := Profile{
			Type:       Graph,
			TempSource: TempSource{DeviceUID: "d", TempName: "t"},
			SpeedProfile: []device.DutyPoint{{Temp: 2, Duty: 1}, {Temp: 1, Duty: 2}},
		}
		assert.Error(t, p.Validate())
	})
	t.Run("mix requires members", func(t *testing.T) {
		p := Profile{Type: Mix}
		assert.Error(t, p.Validate())
	})
	t.Run("fixed valid", func(t *testing.T) {
		p := Profile{Type: Fixed, SpeedFixed: 50}
		assert.NoError(t, p.Validate())
	})
}
