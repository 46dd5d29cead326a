package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements SettingsProvider for a settings document kept in
// the single-row settings table of a dataset database
type SQLiteProvider struct {
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) *SQLiteProvider {
	return &SQLiteProvider{dbPath: dbPath}
}

// LoadSettings reads the stored YAML document and validates it
func (s *SQLiteProvider) LoadSettings() (*Settings, error) {
	if _, err := os.Stat(s.dbPath); err != nil {
		return nil, &ConfigurationError{Msg: "could not find SQLite database " + s.dbPath, Err: err}
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return nil, &ConfigurationError{Msg: "failed to open SQLite database", Err: err}
	}
	defer db.Close()

	var document string
	err = db.QueryRowContext(context.Background(), `SELECT document FROM settings WHERE id = 1`).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ConfigurationError{Msg: "no settings stored in " + s.dbPath}
	}
	if err != nil {
		return nil, &ConfigurationError{Msg: "failed to read settings", Err: err}
	}

	return ParseDocument([]byte(document))
}

// SaveDocument validates a YAML settings document and stores it as the
// database's settings, replacing any previous document
func SaveDocument(ctx context.Context, db *sql.DB, document []byte) (*Settings, error) {
	settings, err := ParseDocument(document)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (id, document, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, string(document))
	if err != nil {
		return nil, fmt.Errorf("failed to store settings: %w", err)
	}
	return settings, nil
}
