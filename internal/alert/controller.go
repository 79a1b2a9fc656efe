// Package alert implements the Alert Controller (§4.5): per-tick min/max
// range evaluation against live telemetry, edge-triggered Active/Inactive
// transitions, and the bounded alert log ring.
package alert

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
)

// Controller evaluates every stored Alert each tick against the Device
// Registry's most recent Status and persists state transitions.
type Controller struct {
	registry *device.Registry
	store    configstore.Store
	logger   zerolog.Logger
	stateGauge *prometheus.GaugeVec
}

// New builds an Alert Controller. stateGauge may be nil in tests that don't
// care about metrics.
func New(registry *device.Registry, store configstore.Store, logger zerolog.Logger, stateGauge *prometheus.GaugeVec) *Controller {
	return &Controller{
		registry:   registry,
		store:      store,
		logger:     logger.With().Str("component", "alert").Logger(),
		stateGauge: stateGauge,
	}
}

// Process evaluates every stored Alert once, edge-triggering a log entry
// and a gauge update on any Active<->Inactive transition (§4.5).
func (c *Controller) Process() {
	for _, a := range c.store.GetAlerts() {
		next, message := c.evaluate(a)
		if next == a.State {
			continue
		}
		a.State = next
		if err := c.store.SetAlert(a); err != nil {
			c.logger.Error().Err(err).Str("alert", string(a.UID)).Msg("failed to persist alert state")
			continue
		}
		if err := c.store.AppendAlertLog(configstore.AlertLogEntry{
			UID: a.UID, Name: a.Name, State: next, Message: message, Timestamp: time.Now(),
		}); err != nil {
			c.logger.Error().Err(err).Str("alert", string(a.UID)).Msg("failed to append alert log entry")
		}
		if c.stateGauge != nil {
			c.stateGauge.WithLabelValues(string(a.UID)).Set(float64(next))
		}
		c.logger.Info().Str("alert", a.Name).Str("state", stateName(next)).Msg(message)
	}
}

// evaluate computes an Alert's next state and a human-readable message for
// the transition, without mutating persisted state (§4.5 steps 1-3).
func (c *Controller) evaluate(a configstore.Alert) (configstore.AlertState, string) {
	d, err := c.registry.Get(a.ChannelSource.DeviceUID)
	if err != nil {
		return configstore.Active, "Device not found"
	}

	latest, ok := d.History().Latest()
	if !ok {
		return configstore.Active, "Channel/Metric not found"
	}

	value, ok := extractMetric(latest, a.ChannelSource)
	if !ok {
		return configstore.Active, "Channel/Metric not found"
	}

	if value > a.Max {
		return configstore.Active, fmt.Sprintf("value %.2f above max %.2f", value, a.Max)
	}
	if value < a.Min {
		return configstore.Active, fmt.Sprintf("value %.2f below min %.2f", value, a.Min)
	}
	if a.State == configstore.Active {
		return configstore.Inactive, fmt.Sprintf("value %.2f back within [%.2f, %.2f]", value, a.Min, a.Max)
	}
	return a.State, ""
}

func extractMetric(s device.Status, src configstore.ChannelSource) (float64, bool) {
	if src.ChannelMetric == configstore.MetricTemp {
		return s.TempByName(src.ChannelName)
	}

	ch, ok := s.ChannelByName(src.ChannelName)
	if !ok {
		return 0, false
	}
	switch src.ChannelMetric {
	case configstore.MetricDuty, configstore.MetricLoad:
		// Liquidctl "load" telemetry and PWM "duty" are both reported on
		// ChannelStatus.Duty; there is no separate load field.
		if ch.Duty == nil {
			return 0, false
		}
		return *ch.Duty, true
	case configstore.MetricRPM:
		if ch.RPM == nil {
			return 0, false
		}
		return float64(*ch.RPM), true
	case configstore.MetricFreq:
		if ch.Freq == nil {
			return 0, false
		}
		return float64(*ch.Freq), true
	default:
		return 0, false
	}
}

func stateName(s configstore.AlertState) string {
	if s == configstore.Active {
		return "active"
	}
	return "inactive"
}

