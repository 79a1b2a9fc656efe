// Package device holds the Device Registry: the set of currently connected
// devices, their channel capabilities, and bounded per-device status
// history. Devices are created at startup by repositories and mutated only
// by their owning repository (status) or by the config store (name
// overrides).
package device

import "time"

// UID is an opaque stable identifier for a device, profile, function, mode
// or alert.
type UID string

// Kind classifies a device's backend.
type Kind int

const (
	KindCPU Kind = iota
	KindGPU
	KindLiquidctl
	KindHwmon
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindGPU:
		return "gpu"
	case KindLiquidctl:
		return "liquidctl"
	case KindHwmon:
		return "hwmon"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// SpeedOptions describes a channel's fan/pump duty control capabilities.
type SpeedOptions struct {
	MinDuty               uint8
	MaxDuty               uint8
	ProfilesEnabled       bool
	FixedEnabled          bool
	ManualProfilesEnabled bool
}

// ChannelInfo describes what a channel supports.
type ChannelInfo struct {
	SpeedOptions *SpeedOptions
	LightingModes []string
	LCDModes      []string
}

// Temp is one named temperature reading in a Status snapshot.
type Temp struct {
	Name         string
	Temp         float64
	FrontendName string
	ExternalName string
}

// ChannelStatus is one channel's reading/output in a Status snapshot.
type ChannelStatus struct {
	Name    string
	RPM     *uint32
	Duty    *float64
	Freq    *uint32
	PWMMode *uint8
}

// Status is one timestamped snapshot of a device's telemetry.
type Status struct {
	Timestamp       time.Time
	Temps           []Temp
	Channels        []ChannelStatus
	FirmwareVersion string
}

// TempByName returns the named temperature reading, if present.
func (s Status) TempByName(name string) (float64, bool) {
	for _, t := range s.Temps {
		if t.Name == name {
			return t.Temp, true
		}
	}
	return 0, false
}

// ChannelByName returns the named channel status, if present.
func (s Status) ChannelByName(name string) (ChannelStatus, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelStatus{}, false
}

// Device is a connected piece of cooling-relevant hardware.
type Device struct {
	UID      UID
	Name     string
	Kind     Kind
	Info     map[string]string
	Channels map[string]ChannelInfo

	history *History
}

// NewDevice constructs a Device with a bounded status history of the given
// capacity.
func NewDevice(uid UID, name string, kind Kind, channels map[string]ChannelInfo, historyCap int) *Device {
	if channels == nil {
		channels = map[string]ChannelInfo{}
	}
	return &Device{
		UID:      uid,
		Name:     name,
		Kind:     kind,
		Info:     map[string]string{},
		Channels: channels,
		history:  NewHistory(historyCap),
	}
}

// History returns the device's status history ring.
func (d *Device) History() *History { return d.history }
