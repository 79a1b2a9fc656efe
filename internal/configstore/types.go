// Package configstore defines the documents and interface the core needs
// from the persisted-configuration collaborator: Profiles, Functions,
// Modes, Alerts, per-device Settings and general daemon settings. The
// on-disk format (TOML/JSON, formatting preservation) is an external
// collaborator concern; this package only states the contract in §6 that
// the core relies on, plus a reference in-memory/YAML implementation under
// ./file for wiring and tests.
package configstore

import (
	"time"

	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/function"
	"github.com/coolercontrol-go/coolercontrold/internal/profile"
)

// Setting is the persisted configuration of one channel of one device.
// Exactly one of the control variants (SpeedFixed / SpeedProfile+TempSource
// / Lighting / LCD / ProfileUID / PWMMode) is semantically meaningful at a
// time; ResetToDefault erases the channel's configuration.
type Setting struct {
	ChannelName    string
	SpeedFixed     *uint8
	SpeedProfile   []device.DutyPoint
	TempSource     *profile.TempSource
	Lighting       map[string]string
	LCD            map[string]string
	ProfileUID     device.UID
	PWMMode        *uint8
	ResetToDefault bool
}

// IsDefaultEquivalent reports whether this setting is equivalent to "no
// configuration" — either explicitly reset, entirely empty, or referencing
// the reserved Default profile (§4.4 "none == default").
func (s Setting) IsDefaultEquivalent() bool {
	if s.ResetToDefault {
		return true
	}
	if s.ProfileUID != "" && s.ProfileUID != profile.DefaultUID {
		return false
	}
	if s.SpeedFixed != nil || len(s.SpeedProfile) > 0 || len(s.Lighting) > 0 || len(s.LCD) > 0 || s.PWMMode != nil {
		return false
	}
	return true
}

// Equal performs the structural equality comparison §4.4 relies on for
// active-mode matching.
func (s Setting) Equal(o Setting) bool {
	if s.ChannelName != o.ChannelName || s.ResetToDefault != o.ResetToDefault || s.ProfileUID != o.ProfileUID {
		return false
	}
	if !equalU8Ptr(s.SpeedFixed, o.SpeedFixed) || !equalU8Ptr(s.PWMMode, o.PWMMode) {
		return false
	}
	if len(s.SpeedProfile) != len(o.SpeedProfile) {
		return false
	}
	for i := range s.SpeedProfile {
		if s.SpeedProfile[i] != o.SpeedProfile[i] {
			return false
		}
	}
	if !equalTempSourcePtr(s.TempSource, o.TempSource) {
		return false
	}
	if !equalStringMap(s.Lighting, o.Lighting) || !equalStringMap(s.LCD, o.LCD) {
		return false
	}
	return true
}

func equalU8Ptr(a, b *uint8) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTempSourcePtr(a, b *profile.TempSource) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringMap(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Mode is a named snapshot of every device's every channel setting.
type Mode struct {
	UID               device.UID
	Name              string
	AllDeviceSettings map[device.UID]map[string]Setting
}

// Clone deep-copies the Mode (used by duplicate and by readers that must not
// mutate the store's copy).
func (m Mode) Clone() Mode {
	out := Mode{UID: m.UID, Name: m.Name, AllDeviceSettings: map[device.UID]map[string]Setting{}}
	for dev, channels := range m.AllDeviceSettings {
		chCopy := make(map[string]Setting, len(channels))
		for ch, s := range channels {
			chCopy[ch] = s
		}
		out.AllDeviceSettings[dev] = chCopy
	}
	return out
}

// ChannelMetric identifies which telemetry field an Alert watches.
type ChannelMetric int

const (
	MetricTemp ChannelMetric = iota
	MetricDuty
	MetricLoad
	MetricRPM
	MetricFreq
)

// ChannelSource references the device/channel/metric an Alert watches.
type ChannelSource struct {
	DeviceUID     device.UID
	ChannelName   string
	ChannelMetric ChannelMetric
}

// AlertState is an Alert's edge-triggered state.
type AlertState int

const (
	Inactive AlertState = iota
	Active
)

// Alert is a threshold rule that edge-triggers Active/Inactive log events.
type Alert struct {
	UID           device.UID
	Name          string
	ChannelSource ChannelSource
	Min           float64
	Max           float64
	State         AlertState
}

// AlertLogEntry is one entry in the bounded alert log ring (capacity 20).
type AlertLogEntry struct {
	UID       device.UID
	Name      string
	State     AlertState
	Message   string
	Timestamp time.Time
}

// GeneralSettings are daemon-wide behavior toggles (§3, defaults in §7).
type GeneralSettings struct {
	ApplyOnBoot        bool
	NoInit             bool
	HandleDynamicTemps bool
	StartupDelay       time.Duration // clamped 0..=10s
	SmoothingLevel     uint8         // clamped 0..=5
	ThinkPadFullSpeed  bool
}

// DefaultGeneralSettings returns the §7 defaults.
func DefaultGeneralSettings() GeneralSettings {
	return GeneralSettings{
		ApplyOnBoot:        true,
		NoInit:             false,
		HandleDynamicTemps: false,
		StartupDelay:       2 * time.Second,
		SmoothingLevel:     0,
		ThinkPadFullSpeed:  false,
	}
}

// Clamp enforces the §7 bounds on mutable fields.
func (g GeneralSettings) Clamp() GeneralSettings {
	if g.StartupDelay < 0 {
		g.StartupDelay = 0
	}
	if g.StartupDelay > 10*time.Second {
		g.StartupDelay = 10 * time.Second
	}
	if g.SmoothingLevel > 5 {
		g.SmoothingLevel = 5
	}
	return g
}

// Document is the full set of domain objects the config store persists.
type Document struct {
	General         GeneralSettings
	Profiles        []profile.Profile
	Functions       []function.Function
	DeviceSettings  map[device.UID]map[string]Setting
	LegacyIDs       map[device.UID]bool
	DeviceNameOverrides map[device.UID]string
}
