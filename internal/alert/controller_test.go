package alert

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore/file"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
)

func newFixture(t *testing.T) (*Controller, *device.Registry, configstore.Store) {
	t.Helper()
	reg := device.NewRegistry()
	d := device.NewDevice("d1", "Device One", device.KindCustom, nil, 10)
	reg.Upsert(d)

	st := file.New(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, st.Load())

	return New(reg, st, zerolog.Nop(), nil), reg, st
}

func pushTemp(t *testing.T, reg *device.Registry, name string, value float64) {
	t.Helper()
	d, err := reg.Get("d1")
	require.NoError(t, err)
	d.History().Append(device.Status{Timestamp: time.Now(), Temps: []device.Temp{{Name: name, Temp: value}}})
}

func TestAlertTriggersActiveOnHighTemp(t *testing.T) {
	c, reg, st := newFixture(t)
	require.NoError(t, st.SetAlert(configstore.Alert{
		UID: "a1", Name: "Coolant High",
		ChannelSource: configstore.ChannelSource{DeviceUID: "d1", ChannelName: "coolant", ChannelMetric: configstore.MetricTemp},
		Min: 0, Max: 50,
	}))
	pushTemp(t, reg, "coolant", 60)

	c.Process()

	alerts := st.GetAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, configstore.Active, alerts[0].State)
	assert.Len(t, st.GetAlertLog(), 1)
}

func TestAlertRecoversToInactive(t *testing.T) {
	c, reg, st := newFixture(t)
	require.NoError(t, st.SetAlert(configstore.Alert{
		UID: "a1", Name: "Coolant High",
		ChannelSource: configstore.ChannelSource{DeviceUID: "d1", ChannelName: "coolant", ChannelMetric: configstore.MetricTemp},
		Min: 0, Max: 50,
	}))
	pushTemp(t, reg, "coolant", 60)
	c.Process()
	pushTemp(t, reg, "coolant", 30)
	c.Process()

	alerts := st.GetAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, configstore.Inactive, alerts[0].State)
	assert.Len(t, st.GetAlertLog(), 2)
}

func TestAlertDeviceNotFound(t *testing.T) {
	c, _, st := newFixture(t)
	require.NoError(t, st.SetAlert(configstore.Alert{
		UID: "a1", Name: "Ghost",
		ChannelSource: configstore.ChannelSource{DeviceUID: "missing", ChannelName: "coolant", ChannelMetric: configstore.MetricTemp},
		Min: 0, Max: 50,
	}))

	c.Process()
	alerts := st.GetAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, configstore.Active, alerts[0].State)
}

func TestAlertEdgeTriggerOnlyLogsOnce(t *testing.T) {
	c, reg, st := newFixture(t)
	require.NoError(t, st.SetAlert(configstore.Alert{
		UID: "a1", Name: "Coolant High",
		ChannelSource: configstore.ChannelSource{DeviceUID: "d1", ChannelName: "coolant", ChannelMetric: configstore.MetricTemp},
		Min: 0, Max: 50,
	}))
	pushTemp(t, reg, "coolant", 60)
	c.Process()
	pushTemp(t, reg, "coolant", 65)
	c.Process()
	pushTemp(t, reg, "coolant", 70)
	c.Process()

	assert.Len(t, st.GetAlertLog(), 1)
}
