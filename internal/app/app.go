package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/weatherdash/internal/controllers/restserver"
	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/engine"
	"github.com/chrissnell/weatherdash/internal/figures"
	"github.com/chrissnell/weatherdash/internal/log"
	"github.com/chrissnell/weatherdash/internal/selection"
	"github.com/chrissnell/weatherdash/pkg/config"
	"go.uber.org/zap"
)

// Options are the runtime knobs that do not live in the settings file
type Options struct {
	ListenAddr string
	MeshSize   float64
	Margin     float64
	CacheSize  int
}

// App represents the main application
type App struct {
	settingsProvider config.SettingsProvider
	source           dataset.Source
	options          Options
	logger           *zap.SugaredLogger
}

// New creates a new application instance
func New(settingsProvider config.SettingsProvider, source dataset.Source, options Options, logger *zap.SugaredLogger) *App {
	return &App{
		settingsProvider: settingsProvider,
		source:           source,
		options:          options,
		logger:           logger,
	}
}

// Components is everything the HTTP layer needs, built from settings and data
type Components struct {
	Settings    *config.Settings
	Dataset     *dataset.Dataset
	Engine      *engine.Engine
	Coordinator *selection.Coordinator
	Figures     *figures.Builder
}

// Build loads the settings and the dataset and wires the interpolation core.
// Every error returned here is fatal.
func (a *App) Build() (*Components, error) {
	settings, err := a.settingsProvider.LoadSettings()
	if err != nil {
		return nil, err
	}
	a.logger.Infof("loaded settings: %s", settings.Summary())

	ds, err := a.source.Load()
	if err != nil {
		return nil, err
	}
	if err := ds.Check(len(settings.Quantities), settings.ForecastSettings.Range); err != nil {
		return nil, err
	}
	steps, stations, quantities := ds.Tensor.Shape()
	a.logger.Infof("loaded %d stations with %d time steps of %d quantities", stations, steps, quantities)

	e, err := engine.New(ds, settings, a.options.CacheSize, a.logger.Named("engine"))
	if err != nil {
		return nil, err
	}

	dv := settings.DefaultView
	coord, err := selection.NewCoordinator(
		selection.State{Quantity: dv.Quantity, Time: dv.Time, Model: dv.Model, Station: dv.Station},
		selection.Bounds{
			Quantities:    settings.Quantities,
			ForecastRange: settings.ForecastSettings.Range,
			Stations:      ds.Stations.Len(),
		},
	)
	if err != nil {
		return nil, &config.ConfigurationError{Msg: "default view does not fit the loaded data", Err: err}
	}

	// Reject a bad mesh before serving rather than on the first request
	if _, _, err := e.BuildRange(a.options.MeshSize, a.options.Margin); err != nil {
		return nil, fmt.Errorf("invalid contour grid options: %w", err)
	}

	return &Components{
		Settings:    settings,
		Dataset:     ds,
		Engine:      e,
		Coordinator: coord,
		Figures:     figures.NewBuilder(e, settings, a.options.MeshSize, a.options.Margin),
	}, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, err := a.Build()
	if err != nil {
		return err
	}

	rest, err := restserver.NewController(ctx, &wg, restserver.Config{ListenAddr: a.options.ListenAddr},
		c.Dataset.Stations, c.Figures, c.Coordinator, a.logger.Named("restserver"))
	if err != nil {
		return err
	}
	if err := rest.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
