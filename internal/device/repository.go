package device

import (
	"context"
	"time"
)

// Setting describes the configuration applied to a single channel. The
// concrete fields mirror the persisted Setting document (internal/
// configstore) but this package only needs the shape, not the store.
type Setting struct {
	ChannelName     string
	SpeedFixed      *uint8
	SpeedProfile    []DutyPoint
	TempSourceUID   UID
	TempSourceName  string
	ProfileUID      UID
	Lighting        map[string]string
	LCD             map[string]string
	PWMMode         *uint8
	ResetToDefault  bool
}

// DutyPoint is one (temp, duty) pair of a Graph profile's curve.
type DutyPoint struct {
	Temp float64
	Duty uint8
}

// Repository is the contract a pluggable device driver collaborator must
// satisfy. The core never talks to hardware directly; it only calls these
// methods on whatever repositories were registered at startup.
type Repository interface {
	// DeviceType reports which Kind this repository's devices belong to.
	DeviceType() Kind

	// Preload refreshes internal driver state ahead of Snapshot. A non-nil
	// error means this cycle's refresh did not fully complete; the core
	// counts it and continues rather than blocking the tick, since preload
	// runs under a soft deadline.
	Preload(ctx context.Context) error

	// Snapshot takes a reading of every device owned by this repository and
	// appends it to each device's History, stamped with the given
	// tick-shared timestamp so all devices carry identical timestamps for
	// one tick. A non-nil error means some devices may not have been
	// refreshed this tick; the core counts it and continues.
	Snapshot(ctx context.Context, timestamp time.Time) error

	// Devices returns the devices currently owned by this repository.
	Devices() []*Device

	// Apply pushes a Setting to one device's channel. Calls for a given
	// (device, channel) pair are serialized by the repository; the core
	// relies on this to satisfy the no-overlapping-writes ordering
	// guarantee.
	Apply(ctx context.Context, deviceUID UID, setting Setting) error

	// Reset returns a channel to automatic/device-default control.
	Reset(ctx context.Context, deviceUID UID, channelName string) error
}
