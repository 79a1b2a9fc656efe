package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore/file"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/profile"
)

// fakeRepo is a minimal device.Repository used to exercise the Settings
// Controller without a real driver.
type fakeRepo struct {
	devices    []*device.Device
	applyCalls []device.Setting
	resetCalls []string
}

func (r *fakeRepo) DeviceType() device.Kind { return device.KindCustom }
func (r *fakeRepo) Preload(ctx context.Context) error { return nil }
func (r *fakeRepo) Snapshot(ctx context.Context, timestamp time.Time) error { return nil }
func (r *fakeRepo) Devices() []*device.Device { return r.devices }
func (r *fakeRepo) Apply(ctx context.Context, deviceUID device.UID, setting device.Setting) error {
	r.applyCalls = append(r.applyCalls, setting)
	return nil
}
func (r *fakeRepo) Reset(ctx context.Context, deviceUID device.UID, channelName string) error {
	r.resetCalls = append(r.resetCalls, channelName)
	return nil
}

func newFixture(t *testing.T) (*Controller, *device.Registry, configstore.Store, *fakeRepo, *device.Device) {
	t.Helper()
	reg := device.NewRegistry()
	d := device.NewDevice("d1", "Test Device", device.KindCustom, map[string]device.ChannelInfo{
		"fan1": {SpeedOptions: &device.SpeedOptions{MinDuty: 20, MaxDuty: 80, FixedEnabled: true, ProfilesEnabled: true, ManualProfilesEnabled: true}},
	}, 10)
	reg.Upsert(d)

	st := file.New(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, st.Load())

	repo := &fakeRepo{devices: []*device.Device{d}}
	c := New(reg, st, zerolog.Nop())
	c.RegisterRepository(repo)

	return c, reg, st, repo, d
}

func TestSetConfigSettingValidatesAndApplies(t *testing.T) {
	c, _, st, repo, _ := newFixture(t)
	fixed := uint8(50)

	err := c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "fan1", SpeedFixed: &fixed})
	require.NoError(t, err)
	require.Len(t, repo.applyCalls, 1)
	assert.Equal(t, uint8(50), *repo.applyCalls[0].SpeedFixed)
	assert.Len(t, st.GetDeviceSettings("d1"), 1)
}

func TestSetConfigSettingRejectsOutOfRangeDuty(t *testing.T) {
	c, _, _, _, _ := newFixture(t)
	fixed := uint8(95)
	err := c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "fan1", SpeedFixed: &fixed})
	require.Error(t, err)
}

func TestSetConfigSettingUnknownChannel(t *testing.T) {
	c, _, _, _, _ := newFixture(t)
	fixed := uint8(50)
	err := c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "nope", SpeedFixed: &fixed})
	require.Error(t, err)
}

func TestProcessScheduledSpeedsAppliesGraphDuty(t *testing.T) {
	c, reg, st, repo, d := newFixture(t)

	graph := profile.Profile{
		UID: "g1", Type: profile.Graph,
		SpeedProfile: []device.DutyPoint{{Temp: 20, Duty: 30}, {Temp: 40, Duty: 60}, {Temp: 60, Duty: 100}},
		TempSource:   profile.TempSource{DeviceUID: "d1", TempName: "coolant"},
		FunctionUID:  "0",
	}
	require.NoError(t, st.SetProfile(graph))
	require.NoError(t, c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "fan1", ProfileUID: "g1"}))
	repo.applyCalls = nil // ignore the direct-apply call above

	d.History().Append(device.Status{Timestamp: time.Now(), Temps: []device.Temp{{Name: "coolant", Temp: 30}}})
	c.ProcessScheduledSpeeds(context.Background())

	require.Len(t, repo.applyCalls, 1)
	assert.Equal(t, uint8(45), *repo.applyCalls[0].SpeedFixed)
	_ = reg
}

func TestProcessScheduledSpeedsSkipsWhenDutyAndTempUnchanged(t *testing.T) {
	c, _, st, repo, d := newFixture(t)

	graph := profile.Profile{
		UID: "g1", Type: profile.Graph,
		SpeedProfile: []device.DutyPoint{{Temp: 20, Duty: 30}, {Temp: 60, Duty: 100}},
		TempSource:   profile.TempSource{DeviceUID: "d1", TempName: "coolant"},
		FunctionUID:  "0",
	}
	require.NoError(t, st.SetProfile(graph))
	require.NoError(t, c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "fan1", ProfileUID: "g1"}))
	repo.applyCalls = nil

	d.History().Append(device.Status{Timestamp: time.Now(), Temps: []device.Temp{{Name: "coolant", Temp: 30}}})
	c.ProcessScheduledSpeeds(context.Background())
	require.Len(t, repo.applyCalls, 1)

	// Same temp again: duty unchanged, temp unchanged -> no second apply.
	d.History().Append(device.Status{Timestamp: time.Now(), Temps: []device.Temp{{Name: "coolant", Temp: 30}}})
	c.ProcessScheduledSpeeds(context.Background())
	assert.Len(t, repo.applyCalls, 1)
}

func TestProcessScheduledSpeedsAppliesInlineGraphDuty(t *testing.T) {
	c, _, st, repo, d := newFixture(t)

	curve := []device.DutyPoint{{Temp: 20, Duty: 30}, {Temp: 40, Duty: 60}, {Temp: 60, Duty: 100}}
	temp := profile.TempSource{DeviceUID: "d1", TempName: "coolant"}
	require.NoError(t, c.SetConfigSetting(context.Background(), "d1", configstore.Setting{
		ChannelName: "fan1", SpeedProfile: curve, TempSource: &temp,
	}))
	repo.applyCalls = nil // ignore the direct-apply call above

	d.History().Append(device.Status{Timestamp: time.Now(), Temps: []device.Temp{{Name: "coolant", Temp: 30}}})
	c.ProcessScheduledSpeeds(context.Background())

	require.Len(t, repo.applyCalls, 1)
	assert.Equal(t, uint8(45), *repo.applyCalls[0].SpeedFixed)
	_ = st
}

func TestProfileDeletedResetsLiveSettings(t *testing.T) {
	c, _, st, repo, _ := newFixture(t)
	require.NoError(t, c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "fan1", ProfileUID: "g1"}))
	repo.applyCalls = nil
	repo.resetCalls = nil

	c.ProfileDeleted(context.Background(), "g1")

	assert.Equal(t, []string{"fan1"}, repo.resetCalls)
	assert.Len(t, st.GetDeviceSettings("d1"), 0)
	assert.True(t, st.GetDeviceSettings("d1")["fan1"].IsDefaultEquivalent())
}

func TestSetResetClearsStoredSetting(t *testing.T) {
	c, _, st, repo, _ := newFixture(t)
	fixed := uint8(50)
	require.NoError(t, c.SetConfigSetting(context.Background(), "d1", configstore.Setting{ChannelName: "fan1", SpeedFixed: &fixed}))

	require.NoError(t, c.SetReset(context.Background(), "d1", "fan1"))
	assert.Len(t, st.GetDeviceSettings("d1"), 0)
	assert.Equal(t, []string{"fan1"}, repo.resetCalls)
}
