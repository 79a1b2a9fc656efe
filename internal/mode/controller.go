// Package mode implements the Mode Controller (§4.4): named snapshots of
// every device's every channel Setting, with activation, CRUD and the
// continuous "which mode currently matches live settings" computation.
package mode

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coolercontrol-go/coolercontrold/internal/ccerrors"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
)

// settingsApplier is the slice of the Settings Controller the Mode
// Controller drives: apply/reset one channel, and the resume-path replay of
// every saved per-device Setting.
type settingsApplier interface {
	SetConfigSetting(ctx context.Context, deviceUID device.UID, setting configstore.Setting) error
	SetReset(ctx context.Context, deviceUID device.UID, channelName string) error
	ApplySavedSettingsForAllDevices(ctx context.Context)
	ProfileDeleted(ctx context.Context, profileUID device.UID)
}

// Controller owns Mode CRUD, activation and the live-match computation.
type Controller struct {
	registry *device.Registry
	store    configstore.Store
	settings settingsApplier
	logger   zerolog.Logger
}

// New builds a Mode Controller over the given device registry, config store
// and Settings Controller.
func New(registry *device.Registry, store configstore.Store, settings settingsApplier, logger zerolog.Logger) *Controller {
	return &Controller{
		registry: registry,
		store:    store,
		settings: settings,
		logger:   logger.With().Str("component", "mode").Logger(),
	}
}

// ApplyAllSavedDeviceSettings is the resume-path operation §4.7 calls. It
// delegates to the Settings Controller's per-device settings replay, which
// is distinct from activating a Mode.
func (c *Controller) ApplyAllSavedDeviceSettings(ctx context.Context) {
	c.settings.ApplySavedSettingsForAllDevices(ctx)
}

// Activate applies a stored Mode (§4.4 activate). For every present device:
// channels with a saved Setting absent from the Mode are reset; channels the
// Mode specifies are applied (and persisted) only if they differ from the
// current saved Setting.
func (c *Controller) Activate(ctx context.Context, modeUID device.UID) error {
	modes, _ := c.store.GetModes()
	m, ok := findMode(modes, modeUID)
	if !ok {
		return ccerrors.New(ccerrors.NotFound, fmt.Sprintf("mode %q not found", modeUID))
	}

	for _, d := range c.registry.All() {
		modeChannels := m.AllDeviceSettings[d.UID]
		liveChannels := c.store.GetDeviceSettings(d.UID)

		for channelName, live := range liveChannels {
			if _, inMode := modeChannels[channelName]; inMode {
				continue
			}
			if live.IsDefaultEquivalent() {
				continue
			}
			if err := c.settings.SetReset(ctx, d.UID, channelName); err != nil {
				c.logger.Error().Err(err).Str("device", string(d.UID)).Str("channel", channelName).
					Msg("reset during mode activation failed")
			}
		}

		for channelName, want := range modeChannels {
			have, exists := liveChannels[channelName]
			if exists && have.Equal(want) {
				continue
			}
			if !exists && want.IsDefaultEquivalent() {
				continue
			}
			want.ChannelName = channelName
			if err := c.settings.SetConfigSetting(ctx, d.UID, want); err != nil {
				c.logger.Error().Err(err).Str("device", string(d.UID)).Str("channel", channelName).
					Msg("apply during mode activation failed")
			}
		}
	}
	return nil
}

// DetermineActiveModes returns every Mode UID whose stored snapshot exactly
// matches the live per-channel settings of every currently present device
// (§4.4 determine_active_modes, equivalence rules in §4.4/§9).
func (c *Controller) DetermineActiveModes() []device.UID {
	modes, order := c.store.GetModes()
	byUID := make(map[device.UID]configstore.Mode, len(modes))
	for _, m := range modes {
		byUID[m.UID] = m
	}

	devices := c.registry.All()
	var active []device.UID
	for _, uid := range order {
		m, ok := byUID[uid]
		if !ok {
			continue
		}
		if modeMatchesLiveState(m, devices, c.store) {
			active = append(active, uid)
		}
	}
	return active
}

func modeMatchesLiveState(m configstore.Mode, devices []*device.Device, store configstore.Store) bool {
	for _, d := range devices {
		live := store.GetDeviceSettings(d.UID)
		modeChannels, hasDevice := m.AllDeviceSettings[d.UID]

		if !hasDevice {
			for _, s := range live {
				if !s.IsDefaultEquivalent() {
					return false
				}
			}
			continue
		}

		seen := map[string]bool{}
		for channelName, want := range modeChannels {
			seen[channelName] = true
			have, exists := live[channelName]
			if !exists {
				if !want.IsDefaultEquivalent() {
					return false
				}
				continue
			}
			if !have.Equal(want) {
				return false
			}
		}
		for channelName, have := range live {
			if seen[channelName] {
				continue
			}
			if !have.IsDefaultEquivalent() {
				return false
			}
		}
	}
	return true
}

// Create snapshots every present device's live per-channel settings into a
// new Mode, minting a fresh UID and appending it to the order.
func (c *Controller) Create(name string) (device.UID, error) {
	uid := device.UID(uuid.NewString())
	m := configstore.Mode{UID: uid, Name: name, AllDeviceSettings: snapshotLiveSettings(c.registry, c.store)}
	if err := c.store.SetMode(m); err != nil {
		return "", err
	}
	return uid, nil
}

func snapshotLiveSettings(registry *device.Registry, store configstore.Store) map[device.UID]map[string]configstore.Setting {
	out := map[device.UID]map[string]configstore.Setting{}
	for _, d := range registry.All() {
		live := store.GetDeviceSettings(d.UID)
		if len(live) == 0 {
			continue
		}
		channels := make(map[string]configstore.Setting, len(live))
		for name, s := range live {
			channels[name] = s
		}
		out[d.UID] = channels
	}
	return out
}

// Duplicate deep-copies a Mode under a fresh UID with a " (copy)" name
// suffix (§4.4 duplicate).
func (c *Controller) Duplicate(uid device.UID) (device.UID, error) {
	modes, _ := c.store.GetModes()
	m, ok := findMode(modes, uid)
	if !ok {
		return "", ccerrors.New(ccerrors.NotFound, fmt.Sprintf("mode %q not found", uid))
	}
	clone := m.Clone()
	clone.UID = device.UID(uuid.NewString())
	clone.Name = m.Name + " (copy)"
	if err := c.store.SetMode(clone); err != nil {
		return "", err
	}
	return clone.UID, nil
}

// Update renames a Mode in place.
func (c *Controller) Update(uid device.UID, name string) error {
	modes, _ := c.store.GetModes()
	m, ok := findMode(modes, uid)
	if !ok {
		return ccerrors.New(ccerrors.NotFound, fmt.Sprintf("mode %q not found", uid))
	}
	m.Name = name
	return c.store.SetMode(m)
}

// UpdateWithCurrentSettings overwrites a Mode's snapshot with the present
// live settings, keeping its uid and name (§4.4 update_with_current_settings).
func (c *Controller) UpdateWithCurrentSettings(uid device.UID) error {
	modes, _ := c.store.GetModes()
	m, ok := findMode(modes, uid)
	if !ok {
		return ccerrors.New(ccerrors.NotFound, fmt.Sprintf("mode %q not found", uid))
	}
	m.AllDeviceSettings = snapshotLiveSettings(c.registry, c.store)
	return c.store.SetMode(m)
}

// Delete removes a Mode.
func (c *Controller) Delete(uid device.UID) error {
	return c.store.DeleteMode(uid)
}

// Reorder applies a new explicit Mode order. The store enforces that uids
// is an exact permutation of the existing set.
func (c *Controller) Reorder(uids []device.UID) error {
	return c.store.SetModeOrder(uids)
}

// ProfileDeleted cascades a Profile deletion into both halves §8 scenario 6
// requires: every stored Mode snapshot (any (device, channel) entry whose
// Setting references the deleted Profile is dropped; a Mode whose device
// submap becomes empty drops that device entry entirely), and the live
// device settings layer, which the Settings Controller resets to default
// and pushes a repository reset for.
func (c *Controller) ProfileDeleted(ctx context.Context, profileUID device.UID) error {
	modes, _ := c.store.GetModes()
	for _, stored := range modes {
		m := stored.Clone()
		changed := false
		for devUID, channels := range m.AllDeviceSettings {
			for channelName, s := range channels {
				if s.ProfileUID == profileUID {
					delete(channels, channelName)
					changed = true
				}
			}
			if len(channels) == 0 {
				delete(m.AllDeviceSettings, devUID)
				changed = true
			}
		}
		if changed {
			if err := c.store.SetMode(m); err != nil {
				return err
			}
		}
	}

	c.settings.ProfileDeleted(ctx, profileUID)
	return nil
}

func findMode(modes []configstore.Mode, uid device.UID) (configstore.Mode, bool) {
	for _, m := range modes {
		if m.UID == uid {
			return m, true
		}
	}
	return configstore.Mode{}, false
}
