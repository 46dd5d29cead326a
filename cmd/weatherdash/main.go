package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/weatherdash/internal/app"
	"github.com/chrissnell/weatherdash/internal/constants"
	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/log"
	"github.com/chrissnell/weatherdash/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to the YAML dashboard settings")
	cfgBackend := flag.String("config-backend", "yaml", "Settings backend type: 'yaml' for a settings file, 'sqlite' for the settings stored in the dataset database")
	dataBackend := flag.String("data-backend", "file", "Dataset backend type: 'file' for CSV stations + NPY measurements, 'sqlite' for a SQLite database")
	stationsFile := flag.String("stations", "data/sample_stations.csv", "Station positions CSV (file backend)")
	dataFile := flag.String("data", "data/sample_data.npy", "Measurement tensor NPY (file backend)")
	dbFile := flag.String("db", "data/weatherdash.db", "Dataset database (sqlite backends)")
	listen := flag.String("listen", "0.0.0.0:8050", "HTTP listen address")
	meshSize := flag.Float64("mesh-size", 0.05, "Contour grid step in degrees")
	margin := flag.Float64("margin", 0.5, "Contour grid margin around the stations in degrees")
	cacheSize := flag.Int("cache-size", 32, "Number of fitted models to keep; 0 disables the cache")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("weatherdash %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var provider config.SettingsProvider
	switch *cfgBackend {
	case "yaml":
		filename, _ := filepath.Abs(*cfgFile)
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider = config.NewSQLiteProvider(*dbFile)
	default:
		log.Errorf("unsupported settings backend: %s. Use 'yaml' or 'sqlite'", *cfgBackend)
		os.Exit(1)
	}

	source, err := dataSource(*dataBackend, *stationsFile, *dataFile, *dbFile)
	if err != nil {
		log.Errorf("Failed to set up dataset: %v", err)
		os.Exit(1)
	}

	// Create and run the application
	application := app.New(provider, source, app.Options{
		ListenAddr: *listen,
		MeshSize:   *meshSize,
		Margin:     *margin,
		CacheSize:  *cacheSize,
	}, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func dataSource(backend, stationsFile, dataFile, dbFile string) (dataset.Source, error) {
	switch backend {
	case "file":
		return dataset.NewFileSource(stationsFile, dataFile), nil
	case "sqlite":
		return dataset.NewSQLiteSource(dbFile), nil
	default:
		return nil, fmt.Errorf("unsupported dataset backend: %s. Use 'file' or 'sqlite'", backend)
	}
}
