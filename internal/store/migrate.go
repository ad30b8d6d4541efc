package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version of the local database.
const SchemaVersion = 1

var migrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			sender TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS summary (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS checkups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phq_score INTEGER NOT NULL,
			gad_score INTEGER NOT NULL,
			completed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	},
}

// Migrate brings the schema up to SchemaVersion. Each version is applied in
// its own transaction together with its schema_migrations row.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	for version := current + 1; version <= SchemaVersion; version++ {
		if err := applyMigration(db, version); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate v%d: begin transaction: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migrations[version] {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v%d: %w", version, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, version); err != nil {
		return fmt.Errorf("migrate v%d: record schema version: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate v%d: commit: %w", version, err)
	}
	return nil
}
