package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/profile"
)

func TestLoadMissingFileSeedsDefaults(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, s.Load())
	assert.Equal(t, configstore.DefaultGeneralSettings(), s.GetGeneralSettings())
}

func TestRoundTripSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := New(path)
	require.NoError(t, s.Load())

	p := profile.Profile{UID: "p1", Name: "Fan Curve", Type: profile.Fixed, SpeedFixed: 50}
	require.NoError(t, s.SetProfile(p))

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	got := reloaded.GetProfiles()
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
}

func TestSetDeviceSettingResetRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := New(path)
	require.NoError(t, s.Load())

	fixed := uint8(50)
	require.NoError(t, s.SetDeviceSetting("d1", configstore.Setting{ChannelName: "fan1", SpeedFixed: &fixed}))
	require.Len(t, s.GetDeviceSettings("d1"), 1)

	require.NoError(t, s.SetDeviceSetting("d1", configstore.Setting{ChannelName: "fan1", ResetToDefault: true}))
	assert.Len(t, s.GetDeviceSettings("d1"), 0)
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := New(path)
	require.NoError(t, s.Load())
	// Bypass SetProfile's own validation to simulate a corrupted file.
	s.doc.Profiles = append(s.doc.Profiles, profile.Profile{UID: "bad", Type: profile.Fixed, SpeedFixed: 200})
	require.NoError(t, s.save())

	reloaded := New(path)
	assert.Error(t, reloaded.Load())
}

func TestAlertLogRingCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := New(path)
	require.NoError(t, s.Load())

	for i := 0; i < 25; i++ {
		require.NoError(t, s.AppendAlertLog(configstore.AlertLogEntry{UID: device.UID("a1")}))
	}
	assert.Len(t, s.GetAlertLog(), alertLogCapacity)
}
