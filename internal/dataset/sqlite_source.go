package dataset

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"os"

	"github.com/chrissnell/weatherdash/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// NewMigrator returns a migrator for the dataset schema embedded in the binary
func NewMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	provider := migrate.NewFSProvider(migrations, "migrations", "dataset_migrations")
	return migrate.NewMigrator(db, provider, logger)
}

// Migrate brings the dataset schema in db up to date. Station and
// measurement indices in the schema are zero-based and must be dense.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	if err := NewMigrator(db, logger).MigrateUp(); err != nil {
		return fmt.Errorf("failed to migrate dataset schema: %w", err)
	}
	return nil
}

// WriteSQLite stores ds in the SQLite database at dbPath, creating the
// database and its schema as needed. Existing stations and measurements
// are replaced.
func WriteSQLite(ctx context.Context, dbPath string, ds *Dataset, logger *zap.SugaredLogger) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer db.Close()

	if err := Migrate(db, logger); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM measurements`, `DELETE FROM stations`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear dataset: %w", err)
		}
	}

	insertStation, err := tx.PrepareContext(ctx, `INSERT INTO stations (idx, lon, lat) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer insertStation.Close()

	for i, st := range ds.Stations.Stations() {
		if _, err := insertStation.ExecContext(ctx, i, st.Lon, st.Lat); err != nil {
			return fmt.Errorf("failed to insert station %d: %w", i, err)
		}
	}

	insertValue, err := tx.PrepareContext(ctx,
		`INSERT INTO measurements (time_step, station_idx, quantity_idx, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare measurement insert: %w", err)
	}
	defer insertValue.Close()

	steps, stations, quantities := ds.Tensor.Shape()
	for step := 0; step < steps; step++ {
		for station := 0; station < stations; station++ {
			for quantity := 0; quantity < quantities; quantity++ {
				if _, err := insertValue.ExecContext(ctx, step, station, quantity, nullableValue(ds.Tensor.At(step, station, quantity))); err != nil {
					return fmt.Errorf("failed to insert measurement (%d, %d, %d): %w", step, station, quantity, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	logger.Infof("wrote %d stations and %d measurements to %s", stations, steps*stations*quantities, dbPath)
	return nil
}

// SQLiteSource loads a dataset from a SQLite database
type SQLiteSource struct {
	dbPath string
}

// NewSQLiteSource creates a SQLite-backed dataset source
func NewSQLiteSource(dbPath string) *SQLiteSource {
	return &SQLiteSource{dbPath: dbPath}
}

// Load reads the station table and the measurement table. Any hole in the
// measurement grid is a load error.
func (s *SQLiteSource) Load() (*Dataset, error) {
	if _, err := os.Stat(s.dbPath); err != nil {
		return nil, &DataLoadError{Msg: "could not find SQLite database " + s.dbPath, Err: err}
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return nil, &DataLoadError{Msg: "failed to open SQLite database", Err: err}
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, &DataLoadError{Msg: "failed to open SQLite database " + s.dbPath, Err: err}
	}

	ctx := context.Background()

	stations, err := loadSQLiteStations(ctx, db)
	if err != nil {
		return nil, &DataLoadError{Msg: "failed to load stations", Err: err}
	}

	tensor, err := loadSQLiteTensor(ctx, db, stations.Len())
	if err != nil {
		return nil, &DataLoadError{Msg: "failed to load measurements", Err: err}
	}

	return &Dataset{Stations: stations, Tensor: tensor}, nil
}

func loadSQLiteStations(ctx context.Context, db *sql.DB) (*StationSet, error) {
	rows, err := db.QueryContext(ctx, `SELECT idx, lon, lat FROM stations ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	for rows.Next() {
		var idx int
		var st Station
		if err := rows.Scan(&idx, &st.Lon, &st.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		if !st.Valid() {
			return nil, fmt.Errorf("station %d has a non-finite position (%v, %v)", idx, st.Lon, st.Lat)
		}
		if idx != len(stations) {
			return nil, fmt.Errorf("station indices are not contiguous: expected %d, found %d", len(stations), idx)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(stations) == 0 {
		return nil, fmt.Errorf("no stations defined")
	}
	return NewStationSet(stations), nil
}

func loadSQLiteTensor(ctx context.Context, db *sql.DB, stationCount int) (*Tensor, error) {
	var steps, stations, quantities, count sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT MAX(time_step) + 1, MAX(station_idx) + 1, MAX(quantity_idx) + 1, COUNT(*)
		FROM measurements
		WHERE time_step >= 0 AND station_idx >= 0 AND quantity_idx >= 0
	`).Scan(&steps, &stations, &quantities, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurement dimensions: %w", err)
	}
	if !steps.Valid || count.Int64 == 0 {
		return nil, fmt.Errorf("no measurements defined")
	}
	if int(stations.Int64) != stationCount {
		return nil, fmt.Errorf("measurements cover %d stations, station table has %d", stations.Int64, stationCount)
	}

	size := steps.Int64 * stations.Int64 * quantities.Int64
	if count.Int64 != size {
		return nil, fmt.Errorf("measurement grid has %d of %d values", count.Int64, size)
	}

	tensor, err := NewTensor(int(steps.Int64), int(stations.Int64), int(quantities.Int64), make([]float64, size))
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT time_step, station_idx, quantity_idx, value FROM measurements`)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step, station, quantity int
		var value sql.NullFloat64
		if err := rows.Scan(&step, &station, &quantity, &value); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		if step < 0 || station < 0 || quantity < 0 {
			return nil, fmt.Errorf("negative index in measurement (%d, %d, %d)", step, station, quantity)
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		tensor.data[tensor.offset(step, station, quantity)] = v
	}

	return tensor, rows.Err()
}

// nullableValue stores a missing measurement (NaN) as NULL
func nullableValue(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}
