// Package mainloop implements the Main Loop & Sleep Listener (§4.7): a
// phase-locked 1 Hz ticker that drives preload/snapshot/apply/alert across
// every repository each tick, and a suspend/resume state machine driven by
// typed messages on a channel.
package mainloop

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coolercontrol-go/coolercontrold/internal/alert"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/metrics"
	"github.com/coolercontrol-go/coolercontrold/internal/mode"
	"github.com/coolercontrol-go/coolercontrold/internal/settings"
)

const (
	tickInterval      = 1 * time.Second
	preloadSoftDeadline = 400 * time.Millisecond
	lcdHardTimeout    = 2 * time.Second
	minWakePause      = 1 * time.Second
)

// SignalKind identifies a sleep/resume message (§6 "typed messages on a
// channel").
type SignalKind int

const (
	// Suspend requests the loop quiesce steps 1-5 until Resume arrives.
	Suspend SignalKind = iota
	// Resume ends quiescence and runs the resume sequence.
	Resume
)

// Signal is one sleep/resume event delivered to the loop.
type Signal struct {
	Kind SignalKind
}

// LCDUpdater performs the (out-of-process) LCD image render/write. It is an
// external collaborator concern; the loop only bounds it with a deadline.
type LCDUpdater func(ctx context.Context) error

// Broadcaster pushes a telemetry snapshot to API subscribers.
type Broadcaster func(devices []*device.Device)

// Loop owns the tick scheduler and suspend/resume state machine.
type Loop struct {
	registry *device.Registry
	store    configstore.Store
	settings *settings.Controller
	alerts   *alert.Controller
	modes    *mode.Controller
	repos    []device.Repository
	metrics  *metrics.Registry
	logger   zerolog.Logger

	lcdUpdate   LCDUpdater
	broadcast   Broadcaster
	signals     chan Signal
	tickCount   uint64
	suspended   bool
	suspendedMu sync.Mutex
}

// New builds a Main Loop over the given collaborators. repos is the set of
// device repositories fanned out to each tick.
func New(
	registry *device.Registry,
	store configstore.Store,
	settingsCtl *settings.Controller,
	alertCtl *alert.Controller,
	modeCtl *mode.Controller,
	repos []device.Repository,
	metricsReg *metrics.Registry,
	logger zerolog.Logger,
) *Loop {
	return &Loop{
		registry: registry,
		store:    store,
		settings: settingsCtl,
		alerts:   alertCtl,
		modes:    modeCtl,
		repos:    repos,
		metrics:  metricsReg,
		logger:   logger.With().Str("component", "mainloop").Logger(),
		signals:  make(chan Signal, 4),
	}
}

// SetLCDUpdater installs the LCD render/write hook; optional.
func (l *Loop) SetLCDUpdater(fn LCDUpdater) { l.lcdUpdate = fn }

// SetBroadcaster installs the per-tick telemetry broadcast hook; optional.
func (l *Loop) SetBroadcaster(fn Broadcaster) { l.broadcast = fn }

// Signals returns the channel sleep/resume events are sent on.
func (l *Loop) Signals() chan<- Signal { return l.signals }

// Run phase-locks to the next wall-clock full second, then ticks until ctx
// is cancelled (SIGTERM/SIGQUIT, per §6). Cancellation causes the loop to
// exit after the in-flight tick completes; callers persist Alerts/Modes via
// the config store, which is already durable per mutation.
func (l *Loop) Run(ctx context.Context) {
	l.waitForPhaseLock(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("main loop shutting down")
			return
		case sig := <-l.signals:
			l.handleSignal(ctx, sig)
		case <-ticker.C:
			if l.isSuspended() {
				continue
			}
			l.tick(ctx)
		}
	}
}

func (l *Loop) waitForPhaseLock(ctx context.Context) {
	now := time.Now()
	next := now.Truncate(time.Second).Add(time.Second)
	select {
	case <-time.After(time.Until(next)):
	case <-ctx.Done():
	}
}

func (l *Loop) isSuspended() bool {
	l.suspendedMu.Lock()
	defer l.suspendedMu.Unlock()
	return l.suspended
}

func (l *Loop) handleSignal(ctx context.Context, sig Signal) {
	switch sig.Kind {
	case Suspend:
		l.suspendedMu.Lock()
		l.suspended = true
		l.suspendedMu.Unlock()
		l.logger.Info().Msg("preparing to sleep")
	case Resume:
		l.resume(ctx)
	}
}

// resume runs the §4.7 resume sequence: wait out the wake pause, then hand
// off to finishResume. Split so tests can exercise the post-pause logic
// without waiting out a real startup_delay.
func (l *Loop) resume(ctx context.Context) {
	pause := l.wakePause()

	select {
	case <-time.After(pause):
	case <-ctx.Done():
		return
	}
	l.finishResume(ctx)
}

// wakePause returns max(startup_delay, minWakePause) per §4.7.
func (l *Loop) wakePause() time.Duration {
	pause := l.store.GetGeneralSettings().StartupDelay
	if pause < minWakePause {
		pause = minWakePause
	}
	return pause
}

// finishResume runs the part of the resume sequence after the wake pause:
// reinitialize on apply_on_boot, always reseed status histories, then clear
// the suspend flag.
func (l *Loop) finishResume(ctx context.Context) {
	general := l.store.GetGeneralSettings()
	if general.ApplyOnBoot {
		l.settings.ReinitializeDevices(ctx, l.repos)
		l.modes.ApplyAllSavedDeviceSettings(ctx)
	}
	l.settings.ReinitializeAllStatusHistories()

	l.suspendedMu.Lock()
	l.suspended = false
	l.suspendedMu.Unlock()
	l.logger.Info().Msg("resumed")
}

// tick runs one full §4.7 step 1-6 cycle.
func (l *Loop) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.TickDuration.Observe(time.Since(start).Seconds())
		}
	}()

	l.preload(ctx)
	l.snapshot(ctx, start)

	l.settings.ProcessScheduledSpeeds(ctx)
	l.reportActiveModes()

	l.tickCount++
	if l.lcdUpdate != nil && l.tickCount%2 == 0 {
		l.runLCDUpdate(ctx)
	}

	l.alerts.Process()

	if l.broadcast != nil {
		l.broadcast(l.registry.All())
	}
}

// preload fans out Repository.Preload with a soft deadline: the loop
// continues at the deadline even if some preloads are still outstanding,
// logging which side won (§4.7 step 1, §5 soft cancellation).
func (l *Loop) preload(ctx context.Context) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.PreloadDuration.Observe(time.Since(start).Seconds())
		}
	}()

	if len(l.repos) == 0 {
		return
	}

	// A plain errgroup.Group (no WithContext) so one repository's failure
	// doesn't cancel the others' in-flight preloads; only the soft deadline
	// below cuts the fan-out short.
	var g errgroup.Group
	for _, repo := range l.repos {
		repo := repo
		g.Go(func() error {
			if err := repo.Preload(ctx); err != nil {
				l.countRepositoryError(repo, "preload")
				l.logger.Error().Err(err).Str("device_kind", repo.DeviceType().String()).Msg("preload failed")
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	timer := time.NewTimer(preloadSoftDeadline)
	defer timer.Stop()

	select {
	case <-done:
		l.logger.Debug().Msg("preload completed before soft deadline")
	case <-timer.C:
		l.logger.Warn().Msg("preload soft deadline expired, continuing tick with outstanding preloads")
	}
}

// snapshot invokes Repository.Snapshot for every repository with a single
// shared tick timestamp, so Status History append order and timestamps
// agree across devices for one tick (§4.7 step 2, §5 ordering guarantees).
func (l *Loop) snapshot(ctx context.Context, timestamp time.Time) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		}
	}()
	for _, repo := range l.repos {
		if err := repo.Snapshot(ctx, timestamp); err != nil {
			l.countRepositoryError(repo, "snapshot")
			l.logger.Error().Err(err).Str("device_kind", repo.DeviceType().String()).Msg("snapshot failed")
		}
	}
}

func (l *Loop) countRepositoryError(repo device.Repository, phase string) {
	if l.metrics == nil {
		return
	}
	l.metrics.RepositoryErrors.WithLabelValues(repo.DeviceType().String(), phase).Inc()
}

// reportActiveModes sets the mode_active gauge for every known Mode, so a
// dashboard can alert on "no mode currently matches" as well as on which
// mode is active.
func (l *Loop) reportActiveModes() {
	if l.metrics == nil {
		return
	}
	active := map[device.UID]bool{}
	for _, uid := range l.modes.DetermineActiveModes() {
		active[uid] = true
	}
	_, order := l.store.GetModes()
	for _, uid := range order {
		v := 0.0
		if active[uid] {
			v = 1
		}
		l.metrics.ActiveModeGauge.WithLabelValues(string(uid)).Set(v)
	}
}

func (l *Loop) runLCDUpdate(ctx context.Context) {
	lcdCtx, cancel := context.WithTimeout(ctx, lcdHardTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.lcdUpdate(lcdCtx) }()

	select {
	case err := <-done:
		if err != nil {
			l.logger.Error().Err(err).Msg("LCD update failed")
		}
	case <-lcdCtx.Done():
		l.logger.Warn().Msg("LCD update exceeded hard timeout, abandoning")
	}
}
