package profile

import (
	"github.com/coolercontrol-go/coolercontrold/internal/ccerrors"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/function"
)

// MixReducer folds a Mix profile's member duties into one result. Default
// and unresolved members are pre-filtered by the Evaluator before the
// reducer sees them, per §4.2 ("undefined member profile UIDs are ignored").
type MixReducer func(memberDuties []uint8) uint8

// Max takes the maximum duty across members. This is the minimum reduction
// policy the spec requires (§4.2, §9).
func Max(memberDuties []uint8) uint8 {
	var max uint8
	for i, d := range memberDuties {
		if i == 0 || d > max {
			max = d
		}
	}
	return max
}

// Min takes the minimum duty across members.
func Min(memberDuties []uint8) uint8 {
	var min uint8
	for i, d := range memberDuties {
		if i == 0 || d < min {
			min = d
		}
	}
	return min
}

// Avg takes the arithmetic mean duty across members, rounded to nearest.
func Avg(memberDuties []uint8) uint8 {
	if len(memberDuties) == 0 {
		return 0
	}
	var sum int
	for _, d := range memberDuties {
		sum += int(d)
	}
	return uint8((sum + len(memberDuties)/2) / len(memberDuties))
}

// Lookup resolves a Profile by UID, as needed to walk Mix members.
type Lookup func(uid device.UID) (Profile, bool)

// FunctionLookup resolves a Function by UID.
type FunctionLookup func(uid device.UID) (function.Function, bool)

// TempSamples returns the most-recent-first window of raw temperature
// samples for a TempSource, as needed by the Function Evaluator.
type TempSamples func(src TempSource, window int) []float64

// FunctionState returns the mutable per-(device,channel) Standard-function
// state to use while evaluating the given profile/channel pair.
type FunctionState func(profileUID device.UID, channelName string) *function.State

// Evaluator resolves Profiles into target duties.
type Evaluator struct {
	Profiles   Lookup
	Functions  FunctionLookup
	Samples    TempSamples
	FuncState  FunctionState
	MinDuty    uint8
	MaxDuty    uint8
	MixReduce  MixReducer
}

// NewEvaluator constructs an Evaluator with the Max reducer as default.
func NewEvaluator(profiles Lookup, functions FunctionLookup, samples TempSamples, state FunctionState) *Evaluator {
	return &Evaluator{
		Profiles:  profiles,
		Functions: functions,
		Samples:   samples,
		FuncState: state,
		MinDuty:   0,
		MaxDuty:   100,
		MixReduce: Max,
	}
}

// Resolve evaluates the profile identified by uid for the given channel,
// returning the target duty. ok is false for a Default profile (no-op:
// channel left to device automatic control).
func (e *Evaluator) Resolve(uid device.UID, channelName string) (duty uint8, ok bool, err error) {
	duty, ok, _, err = e.resolveByUID(uid, channelName, map[device.UID]bool{})
	return duty, ok, err
}

// ResolveProfile evaluates an already-materialized Profile value rather than
// looking one up by uid, as needed for an ephemeral profile built from a
// Setting's inline speed_profile+temp_source curve (no stored uid to look
// up). It also returns the Graph profile's effective temperature (post
// Function smoothing), since callers need it to judge whether the input
// temperature moved (§4.2, §4.3, §8 invariant 2).
func (e *Evaluator) ResolveProfile(p Profile, channelName string) (duty uint8, ok bool, effectiveTemp float64, err error) {
	visiting := map[device.UID]bool{}
	return e.resolveValue(p, channelName, visiting)
}

func (e *Evaluator) resolveByUID(uid device.UID, channelName string, visiting map[device.UID]bool) (uint8, bool, float64, error) {
	p, found := e.Profiles(uid)
	if !found {
		return 0, false, 0, nil
	}
	return e.resolveValue(p, channelName, visiting)
}

func (e *Evaluator) resolveValue(p Profile, channelName string, visiting map[device.UID]bool) (uint8, bool, float64, error) {
	switch p.Type {
	case Default:
		return 0, false, 0, nil

	case Fixed:
		return safeClampDuty(p.SpeedFixed, e.MinDuty, e.MaxDuty), true, 0, nil

	case Graph:
		return e.resolveGraph(p, channelName)

	case Mix:
		if visiting[p.UID] {
			return 0, false, 0, ccerrors.New(ccerrors.UserError, "profile cycle detected: "+string(p.UID))
		}
		visiting[p.UID] = true

		var duties []uint8
		for _, memberUID := range p.MemberProfileUIDs {
			d, resolved, _, err := e.resolveByUID(memberUID, channelName, visiting)
			if err != nil {
				return 0, false, 0, err
			}
			if !resolved {
				// Default or unresolved member: skip per §4.2.
				continue
			}
			duties = append(duties, d)
		}
		delete(visiting, p.UID)

		if len(duties) == 0 {
			return 0, false, 0, nil
		}
		reducer := e.MixReduce
		if reducer == nil {
			reducer = Max
		}
		return safeClampDuty(reducer(duties), e.MinDuty, e.MaxDuty), true, 0, nil

	default:
		return 0, false, 0, nil
	}
}

func (e *Evaluator) resolveGraph(p Profile, channelName string) (uint8, bool, float64, error) {
	fn, ok := e.Functions(p.FunctionUID)
	if !ok {
		fn = function.DefaultFunction()
	}

	window := int(fn.SampleWindow)
	if window == 0 {
		window = 1
	}
	samples := e.Samples(p.TempSource, window)
	if len(samples) == 0 {
		return 0, false, 0, nil
	}

	var state *function.State
	if e.FuncState != nil {
		state = e.FuncState(p.UID, channelName)
	} else {
		state = &function.State{}
	}

	effective := function.Evaluate(fn, samples, state)
	duty := Interpolate(p.SpeedProfile, effective)
	return safeClampDuty(duty, e.MinDuty, e.MaxDuty), true, effective, nil
}

// Interpolate performs piecewise-linear interpolation of duty at temp over
// a sorted curve, clamping outside the curve's domain, and rounds to the
// nearest integer (§4.2, scenario 1).
func Interpolate(curve []device.DutyPoint, temp float64) uint8 {
	if len(curve) == 0 {
		return 0
	}
	if temp <= curve[0].Temp {
		return curve[0].Duty
	}
	last := curve[len(curve)-1]
	if temp >= last.Temp {
		return last.Duty
	}
	for i := 1; i < len(curve); i++ {
		lo, hi := curve[i-1], curve[i]
		if temp <= hi.Temp {
			span := hi.Temp - lo.Temp
			if span <= 0 {
				return hi.Duty
			}
			frac := (temp - lo.Temp) / span
			d := float64(lo.Duty) + frac*float64(int(hi.Duty)-int(lo.Duty))
			return roundDuty(d)
		}
	}
	return last.Duty
}

func roundDuty(v float64) uint8 {
	r := int(v + 0.5)
	if r < 0 {
		r = 0
	}
	if r > 255 {
		r = 255
	}
	return uint8(r)
}

func safeClampDuty(d, min, max uint8) uint8 {
	if max == 0 {
		max = 100
	}
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
