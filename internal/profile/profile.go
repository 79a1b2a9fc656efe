// Package profile implements the Profile Evaluator: resolves a Profile
// against a channel's effective temperature into a target duty, per §4.2.
package profile

import (
	"github.com/coolercontrol-go/coolercontrold/internal/ccerrors"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
)

// Type identifies a Profile's resolution strategy.
type Type int

const (
	Default Type = iota
	Fixed
	Graph
	Mix
)

// DefaultUID is the reserved UID of the built-in no-op Default profile.
const DefaultUID device.UID = "0"

// Graph profile curve length bounds (§3, invariant §8).
const (
	GraphMinPoints = 2
	GraphMaxPoints = 17
)

// TempSource references a named temperature sensor on a device.
type TempSource struct {
	DeviceUID device.UID
	TempName  string
}

// Profile is a named rule mapping an effective temperature to a duty.
type Profile struct {
	UID              device.UID
	Name             string
	Type             Type
	SpeedFixed       uint8
	SpeedProfile     []device.DutyPoint `yaml:",omitempty"` // sorted ascending by Temp
	TempSource       TempSource
	FunctionUID      device.UID
	MemberProfileUIDs []device.UID `yaml:",omitempty"`
}

// Validate checks the invariants from §3/§8 for the profile's declared type.
func (p Profile) Validate() error {
	switch p.Type {
	case Fixed:
		if p.SpeedFixed > 100 {
			return ccerrors.New(ccerrors.UserError, "fixed speed must be 0..=100")
		}
	case Graph:
		n := len(p.SpeedProfile)
		if n < GraphMinPoints || n > GraphMaxPoints {
			return ccerrors.New(ccerrors.UserError, "graph profile must have 2..=17 points")
		}
		if p.TempSource.DeviceUID == "" || p.TempSource.TempName == "" {
			return ccerrors.New(ccerrors.UserError, "graph profile requires a temp_source")
		}
		for i, pt := range p.SpeedProfile {
			if pt.Duty > 100 {
				return ccerrors.New(ccerrors.UserError, "graph duty must be 0..=100")
			}
			if i > 0 && pt.Temp <= p.SpeedProfile[i-1].Temp {
				return ccerrors.New(ccerrors.UserError, "graph profile must be sorted strictly by temp")
			}
		}
	case Mix:
		if len(p.MemberProfileUIDs) == 0 {
			return ccerrors.New(ccerrors.UserError, "mix profile requires at least one member")
		}
	case Default:
		// no-op
	}
	return nil
}

// IsSorted reports whether SpeedProfile is sorted strictly ascending by temp
// (used by callers constructing profiles outside Validate).
func IsSorted(points []device.DutyPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Temp <= points[i-1].Temp {
			return false
		}
	}
	return true
}

// DefaultProfile returns the Default profile (uid "0"), left to device
// automatic control.
func DefaultProfile() Profile {
	return Profile{UID: DefaultUID, Name: "Default", Type: Default}
}
