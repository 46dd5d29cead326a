package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/log"
	"github.com/chrissnell/weatherdash/pkg/config"
	"github.com/chrissnell/weatherdash/pkg/migrate"
	_ "modernc.org/sqlite" // SQLite driver
)

func main() {
	var (
		dbFile        = flag.String("db", "data/weatherdash.db", "Dataset database")
		stationsFile  = flag.String("stations", "data/sample_stations.csv", "Station positions CSV to import")
		dataFile      = flag.String("data", "data/sample_data.npy", "Measurement tensor NPY to import")
		cfgFile       = flag.String("config", "", "YAML dashboard settings to store alongside the data (optional)")
		command       = flag.String("command", "import", "Command: import, up, down, version, status")
		targetVersion = flag.String("target", "", "Target version for the down command")
		debug         = flag.Bool("debug", false, "Turn on debugging output")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.Component("dataset")

	if *command == "import" {
		ds, err := dataset.NewFileSource(*stationsFile, *dataFile).Load()
		if err != nil {
			log.Fatalf("Failed to load dataset: %v", err)
		}
		if err := dataset.WriteSQLite(context.Background(), *dbFile, ds, logger); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		if *cfgFile != "" {
			if err := importSettings(*dbFile, *cfgFile); err != nil {
				log.Fatalf("Settings import failed: %v", err)
			}
		}
		fmt.Println("Import completed successfully")
		return
	}

	db, err := sql.Open("sqlite", *dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrator := dataset.NewMigrator(db, logger)

	switch *command {
	case "up":
		err = migrator.MigrateUp()
	case "down":
		if *targetVersion == "" {
			fmt.Fprintf(os.Stderr, "Error: -target flag is required for down command\n")
			os.Exit(1)
		}
		target, convErr := strconv.Atoi(*targetVersion)
		if convErr != nil {
			log.Fatalf("Invalid target version: %v", convErr)
		}
		err = migrator.MigrateDown(target)
	case "version":
		version, err := migrator.GetCurrentVersion()
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		err = showStatus(migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}
}

func importSettings(dbFile, cfgFile string) error {
	document, err := os.ReadFile(cfgFile)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return err
	}
	defer db.Close()

	settings, err := config.SaveDocument(context.Background(), db, document)
	if err != nil {
		return err
	}
	log.Infof("stored settings: %s", settings.Summary())
	return nil
}

func showStatus(migrator *migrate.Migrator) error {
	currentVersion, err := migrator.GetCurrentVersion()
	if err != nil {
		return err
	}

	pending, err := migrator.GetPendingMigrations()
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %d\n", currentVersion)
	fmt.Printf("Pending migrations: %d\n", len(pending))
	for _, migration := range pending {
		fmt.Printf("  %d: %s\n", migration.Version, migration.Name)
	}

	return nil
}

func showHelp() {
	fmt.Println("Dataset Import Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dataset-import [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -db string         Dataset database (default: data/weatherdash.db)")
	fmt.Println("  -stations string   Station positions CSV to import")
	fmt.Println("  -data string       Measurement tensor NPY to import")
	fmt.Println("  -config string     YAML dashboard settings to store (optional)")
	fmt.Println("  -command string    Command (default: import)")
	fmt.Println("  -target string     Target version for the down command")
	fmt.Println("  -debug             Turn on debugging output")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  import             Load the CSV and NPY files (and settings) into the database")
	fmt.Println("  up                 Apply all pending schema migrations")
	fmt.Println("  down               Roll the schema back to target version")
	fmt.Println("  version            Show current schema version")
	fmt.Println("  status             Show schema migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  dataset-import -stations stations.csv -data data.npy -db weatherdash.db")
	fmt.Println("  dataset-import -stations stations.csv -data data.npy -config config.yaml -db weatherdash.db")
	fmt.Println("  dataset-import -db weatherdash.db -command status")
}
