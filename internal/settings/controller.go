// Package settings implements the Settings Controller: applies direct
// Setting commands, and each tick recomputes and applies Profile-driven
// duty targets via the Function and Profile evaluators (§4.3).
package settings

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/coolercontrol-go/coolercontrold/internal/ccerrors"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/function"
	"github.com/coolercontrol-go/coolercontrold/internal/profile"
)

// Controller is the Settings Controller.
type Controller struct {
	registry *device.Registry
	store    configstore.Store
	logger   zerolog.Logger

	repoByDevice map[device.UID]device.Repository

	evaluator *profile.Evaluator

	funcStates map[string]*function.State // key: profileUID + "/" + deviceUID + "/" + channelName
	lastDuty   map[string]uint8           // key: deviceUID + "/" + channelName
	lastTemp   map[string]float64         // key: deviceUID + "/" + channelName
}

// New constructs a Settings Controller.
func New(registry *device.Registry, store configstore.Store, logger zerolog.Logger) *Controller {
	c := &Controller{
		registry:     registry,
		store:        store,
		logger:       logger.With().Str("component", "settings_controller").Logger(),
		repoByDevice: map[device.UID]device.Repository{},
		funcStates:   map[string]*function.State{},
		lastDuty:     map[string]uint8{},
		lastTemp:     map[string]float64{},
	}
	c.evaluator = profile.NewEvaluator(c.lookupProfile, c.lookupFunction, c.tempSamples, c.functionState)
	return c
}

// RegisterRepository routes apply/reset calls for the repository's devices
// to that repository.
func (c *Controller) RegisterRepository(repo device.Repository) {
	for _, d := range repo.Devices() {
		c.repoByDevice[d.UID] = repo
	}
}

func (c *Controller) lookupProfile(uid device.UID) (profile.Profile, bool) {
	for _, p := range c.store.GetProfiles() {
		if p.UID == uid {
			return p, true
		}
	}
	if uid == profile.DefaultUID {
		return profile.DefaultProfile(), true
	}
	return profile.Profile{}, false
}

func (c *Controller) lookupFunction(uid device.UID) (function.Function, bool) {
	for _, f := range c.store.GetFunctions() {
		if f.UID == uid {
			return f, true
		}
	}
	if uid == function.IdentityUID || uid == "" {
		return function.DefaultFunction(), true
	}
	return function.Function{}, false
}

func (c *Controller) tempSamples(src profile.TempSource, window int) []float64 {
	d, err := c.registry.Get(src.DeviceUID)
	if err != nil {
		return nil
	}
	return d.History().RecentTemps(src.TempName, window)
}

func (c *Controller) functionState(profileUID device.UID, channelName string) *function.State {
	key := string(profileUID) + "/" + channelName
	if c.funcStates[key] == nil {
		c.funcStates[key] = &function.State{}
	}
	return c.funcStates[key]
}

// SetConfigSetting validates a Setting against the channel's ChannelInfo,
// dispatches apply to the owning repository, then persists it.
func (c *Controller) SetConfigSetting(ctx context.Context, deviceUID device.UID, setting configstore.Setting) error {
	d, err := c.registry.Get(deviceUID)
	if err != nil {
		return err
	}
	info, ok := d.Channels[setting.ChannelName]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "unknown channel: "+setting.ChannelName)
	}
	if err := validateSetting(info, setting); err != nil {
		return err
	}

	repo, ok := c.repoByDevice[deviceUID]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "no repository owns device: "+string(deviceUID))
	}

	repoSetting := toRepoSetting(setting)
	if err := repo.Apply(ctx, deviceUID, repoSetting); err != nil {
		return ccerrors.Wrap(ccerrors.External, "apply setting", err)
	}

	if err := c.store.SetDeviceSetting(deviceUID, setting); err != nil {
		return ccerrors.Wrap(ccerrors.External, "persist setting", err)
	}
	return nil
}

func validateSetting(info device.ChannelInfo, s configstore.Setting) error {
	if s.ResetToDefault {
		return nil
	}
	if s.SpeedFixed != nil {
		if info.SpeedOptions == nil || !info.SpeedOptions.FixedEnabled {
			return ccerrors.New(ccerrors.UserError, "fixed speed not supported on this channel")
		}
		if *s.SpeedFixed < info.SpeedOptions.MinDuty || *s.SpeedFixed > info.SpeedOptions.MaxDuty {
			return ccerrors.New(ccerrors.UserError, "fixed speed out of channel range")
		}
	}
	if len(s.SpeedProfile) > 0 {
		if info.SpeedOptions == nil || !info.SpeedOptions.ManualProfilesEnabled {
			return ccerrors.New(ccerrors.UserError, "manual profiles not supported on this channel")
		}
		if s.TempSource == nil {
			return ccerrors.New(ccerrors.UserError, "speed_profile requires temp_source")
		}
	}
	if s.ProfileUID != "" {
		if info.SpeedOptions == nil || !info.SpeedOptions.ProfilesEnabled {
			return ccerrors.New(ccerrors.UserError, "profiles not supported on this channel")
		}
	}
	if len(s.Lighting) > 0 {
		mode := s.Lighting["mode"]
		if !containsString(info.LightingModes, mode) {
			return ccerrors.New(ccerrors.UserError, "unknown lighting mode: "+mode)
		}
	}
	if len(s.LCD) > 0 {
		mode := s.LCD["mode"]
		if !containsString(info.LCDModes, mode) {
			return ccerrors.New(ccerrors.UserError, "unknown lcd mode: "+mode)
		}
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func toRepoSetting(s configstore.Setting) device.Setting {
	out := device.Setting{
		ChannelName:    s.ChannelName,
		SpeedFixed:     s.SpeedFixed,
		SpeedProfile:   s.SpeedProfile,
		ProfileUID:     s.ProfileUID,
		Lighting:       s.Lighting,
		LCD:            s.LCD,
		PWMMode:        s.PWMMode,
		ResetToDefault: s.ResetToDefault,
	}
	if s.TempSource != nil {
		out.TempSourceUID = s.TempSource.DeviceUID
		out.TempSourceName = s.TempSource.TempName
	}
	return out
}

// SetReset resets a channel to automatic control and stores an equivalent
// marker.
func (c *Controller) SetReset(ctx context.Context, deviceUID device.UID, channelName string) error {
	repo, ok := c.repoByDevice[deviceUID]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "no repository owns device: "+string(deviceUID))
	}
	if err := repo.Reset(ctx, deviceUID, channelName); err != nil {
		return ccerrors.Wrap(ccerrors.External, "reset channel", err)
	}
	if err := c.store.SetDeviceSetting(deviceUID, configstore.Setting{ChannelName: channelName, ResetToDefault: true}); err != nil {
		return ccerrors.Wrap(ccerrors.External, "persist reset", err)
	}
	return nil
}

// ProcessScheduledSpeeds recomputes and applies every persisted
// Profile-driven Setting's target duty, for every channel whose Setting
// references a Profile directly (profile_uid) or inline
// (speed_profile+temp_source, §3, §8 invariant 2). Called once per tick.
func (c *Controller) ProcessScheduledSpeeds(ctx context.Context) {
	general := c.store.GetGeneralSettings()
	all := c.store.GetAllDeviceSettings()

	for deviceUID, channels := range all {
		d, err := c.registry.Get(deviceUID)
		if err != nil {
			continue // device not currently present; skip silently
		}
		repo, ok := c.repoByDevice[deviceUID]
		if !ok {
			continue
		}

		for channelName, setting := range channels {
			if setting.ResetToDefault {
				continue
			}
			p, schedulable := c.resolveSchedulable(deviceUID, channelName, setting)
			if !schedulable {
				continue
			}
			c.applyScheduled(ctx, d, repo, deviceUID, channelName, p, general)
		}
	}
}

// resolveSchedulable returns the Profile to re-evaluate each tick for a
// Setting: the stored Profile it references via profile_uid, or an
// ephemeral Graph profile built from an inline speed_profile+temp_source
// curve — both are first-class Profile-driven control variants and neither
// is left unscheduled.
func (c *Controller) resolveSchedulable(deviceUID device.UID, channelName string, s configstore.Setting) (profile.Profile, bool) {
	if s.ProfileUID != "" {
		return c.lookupProfile(s.ProfileUID)
	}
	if len(s.SpeedProfile) > 0 && s.TempSource != nil {
		return profile.Profile{
			UID:          device.UID("inline:" + string(deviceUID) + "/" + channelName),
			Type:         profile.Graph,
			SpeedProfile: s.SpeedProfile,
			TempSource:   *s.TempSource,
		}, true
	}
	return profile.Profile{}, false
}

func (c *Controller) applyScheduled(
	ctx context.Context,
	d *device.Device,
	repo device.Repository,
	deviceUID device.UID,
	channelName string,
	p profile.Profile,
	general configstore.GeneralSettings,
) {
	var minDuty, maxDuty uint8 = 0, 100
	if info, ok := d.Channels[channelName]; ok && info.SpeedOptions != nil {
		minDuty, maxDuty = info.SpeedOptions.MinDuty, info.SpeedOptions.MaxDuty
		if maxDuty == 0 {
			maxDuty = 100
		}
	}
	c.evaluator.MinDuty = minDuty
	c.evaluator.MaxDuty = maxDuty

	key := string(deviceUID) + "/" + channelName

	// The device-qualified key keeps Function state separate for same-named
	// channels on different devices.
	duty, ok, effectiveTemp, err := c.evaluator.ResolveProfile(p, key)
	if err != nil {
		c.logger.Error().Err(err).Str("device", string(deviceUID)).Str("channel", channelName).Msg("profile resolution failed")
		return
	}
	if !ok {
		return // Default profile: leave channel to device automatic control.
	}

	prevDuty, hadPrev := c.lastDuty[key]
	prevTemp, hadPrevTemp := c.lastTemp[key]

	// effectiveTemp is the Function's smoothed output, not the raw sample;
	// a Standard function's dead-band hold can leave it unchanged tick over
	// tick even while the raw reading jitters (§4.2).
	tempMoved := p.Type == profile.Graph && (!hadPrevTemp || absDiff(effectiveTemp, prevTemp) >= 0.1)
	dutyChanged := !hadPrev || prevDuty != duty

	if !general.HandleDynamicTemps && !dutyChanged && !tempMoved {
		return
	}

	speedFixed := duty
	repoSetting := device.Setting{ChannelName: channelName, SpeedFixed: &speedFixed}
	if err := repo.Apply(ctx, deviceUID, repoSetting); err != nil {
		c.logger.Error().Err(err).Str("device", string(deviceUID)).Str("channel", channelName).Msg("scheduled apply failed")
		return
	}

	c.lastDuty[key] = duty
	c.lastTemp[key] = effectiveTemp
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// ProfileUpdated re-resolves (by clearing cached state) every channel whose
// active Setting references uid, directly or as a Mix member, so the next
// tick's ProcessScheduledSpeeds recomputes from scratch.
func (c *Controller) ProfileUpdated(uid device.UID) {
	profiles := c.store.GetProfiles()
	referencing := map[device.UID]bool{uid: true}
	// Fixed point over Mix membership: a Mix referencing a changed member is
	// itself considered changed for cache-invalidation purposes.
	changed := true
	for changed {
		changed = false
		for _, p := range profiles {
			if referencing[p.UID] {
				continue
			}
			if p.Type == profile.Mix {
				for _, m := range p.MemberProfileUIDs {
					if referencing[m] {
						referencing[p.UID] = true
						changed = true
						break
					}
				}
			}
		}
	}

	all := c.store.GetAllDeviceSettings()
	for deviceUID, channels := range all {
		for channelName, setting := range channels {
			if setting.ProfileUID != "" && referencing[setting.ProfileUID] {
				key := string(deviceUID) + "/" + channelName
				delete(c.lastDuty, key)
				delete(c.lastTemp, key)
			}
		}
	}
}

// ProfileDeleted resets every live channel whose persisted Setting
// references the deleted Profile directly, pushing a repository reset and
// clearing it to default, and drops any cached scheduling state for that
// channel (§4.4/§8 scenario 6 — this is the live-settings half of the
// cascade; ProfileDeleted on the Mode Controller handles stored Mode
// snapshots). Best-effort: a channel whose owning repository can't be
// reached is logged and skipped, matching ProcessScheduledSpeeds.
func (c *Controller) ProfileDeleted(ctx context.Context, profileUID device.UID) {
	all := c.store.GetAllDeviceSettings()
	for deviceUID, channels := range all {
		for channelName, setting := range channels {
			if setting.ProfileUID != profileUID {
				continue
			}
			if err := c.SetReset(ctx, deviceUID, channelName); err != nil {
				c.logger.Error().Err(err).Str("device", string(deviceUID)).Str("channel", channelName).
					Msg("reset during profile deletion failed")
				continue
			}
			key := string(deviceUID) + "/" + channelName
			delete(c.lastDuty, key)
			delete(c.lastTemp, key)
		}
	}
}

// ReinitializeDevices instructs each registered repository to re-open
// (re-preload) and refreshes the registry and apply-routing table from its
// resulting device set. Used on resume; the actual re-apply of saved
// settings is a separate step (ApplySavedSettingsForAllDevices), invoked by
// the Mode Controller per §4.7.
func (c *Controller) ReinitializeDevices(ctx context.Context, repos []device.Repository) {
	for _, repo := range repos {
		if err := repo.Preload(ctx); err != nil {
			c.logger.Error().Err(err).Str("device_kind", repo.DeviceType().String()).Msg("reinitialize preload failed")
		}
		for _, d := range repo.Devices() {
			c.registry.Upsert(d)
			c.repoByDevice[d.UID] = repo
		}
	}
}

// ReinitializeAllStatusHistories clears and reseeds every device's history
// to preserve the monotone-timestamp invariant after a clock jump.
func (c *Controller) ReinitializeAllStatusHistories() {
	c.registry.ClearAllHistories()
}

// ApplySavedSettingsForAllDevices re-applies, for every present device, the
// currently saved Setting for each of its channels. This is the per-device
// settings replay the Mode Controller's ApplyAllSavedDeviceSettings invokes
// on resume (§4.7), distinct from Mode activation.
func (c *Controller) ApplySavedSettingsForAllDevices(ctx context.Context) {
	all := c.store.GetAllDeviceSettings()
	for deviceUID, channels := range all {
		if _, err := c.registry.Get(deviceUID); err != nil {
			continue
		}
		repo, ok := c.repoByDevice[deviceUID]
		if !ok {
			continue
		}
		for _, setting := range channels {
			if setting.ResetToDefault {
				_ = repo.Reset(ctx, deviceUID, setting.ChannelName)
				continue
			}
			_ = repo.Apply(ctx, deviceUID, toRepoSetting(setting))
		}
	}
}
