// Package daemon wires together the Device Registry, Config Store, the
// Settings/Mode/Alert controllers and the Main Loop into one runnable
// process, following the teacher's startup-phase builder style.
package daemon

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/coolercontrol-go/coolercontrold/internal/alert"
	"github.com/coolercontrol-go/coolercontrold/internal/config"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore/file"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/logging"
	"github.com/coolercontrol-go/coolercontrold/internal/mainloop"
	"github.com/coolercontrol-go/coolercontrold/internal/metrics"
	"github.com/coolercontrol-go/coolercontrold/internal/mode"
	"github.com/coolercontrol-go/coolercontrold/internal/settings"
)

// Daemon is the fully wired process: every controller plus the main loop
// and the metrics HTTP server.
type Daemon struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Registry

	Registry *device.Registry
	Settings *settings.Controller
	Alerts   *alert.Controller
	Modes    *mode.Controller
	Loop     *mainloop.Loop
	repos    []device.Repository

	httpServer *http.Server
}

// Build constructs every component and wires the given repositories into
// the Settings Controller and the Main Loop. repos may be empty; production
// callers populate it from whatever vendor repositories were discovered.
func Build(cfg *config.Config, repos []device.Repository) (*Daemon, error) {
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	store := file.New(cfg.ConfigStorePath)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config store: %w", err)
	}

	registry := device.NewRegistry()
	metricsReg := metrics.NewRegistry()

	settingsCtl := settings.New(registry, store, logger)
	for _, repo := range repos {
		settingsCtl.RegisterRepository(repo)
	}

	alertCtl := alert.New(registry, store, logger, metricsReg.AlertState)
	modeCtl := mode.New(registry, store, settingsCtl, logger)

	loop := mainloop.New(registry, store, settingsCtl, alertCtl, modeCtl, repos, metricsReg, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		metrics:    metricsReg,
		Registry:   registry,
		Settings:   settingsCtl,
		Alerts:     alertCtl,
		Modes:      modeCtl,
		Loop:       loop,
		repos:      repos,
		httpServer: httpServer,
	}, nil
}

// Run registers the Prometheus collectors, starts the metrics HTTP server
// and blocks running the Main Loop until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.metrics.MustRegister(prometheus.DefaultRegisterer)

	go func() {
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Msg("metrics server exited")
		}
	}()
	defer func() { _ = d.httpServer.Close() }()

	for _, repo := range d.repos {
		if err := repo.Preload(ctx); err != nil {
			d.metrics.RepositoryErrors.WithLabelValues(repo.DeviceType().String(), "preload").Inc()
			d.logger.Error().Err(err).Str("device_kind", repo.DeviceType().String()).Msg("initial preload failed")
		}
		for _, dev := range repo.Devices() {
			d.Registry.Upsert(dev)
		}
	}

	d.Loop.Run(ctx)
	return nil
}
