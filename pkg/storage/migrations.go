package storage

import (
	"database/sql"
	"fmt"
)

// MigrationVersion is the newest database schema version.
const MigrationVersion = 2

// migrations are applied in order; index i holds version i+1
var migrations = []func(tx *sql.Tx) error{
	applyMigration1,
	applyMigration2,
}

// InitializeDatabase creates or upgrades the local drafts database.
// Applied versions are tracked in the migrations table.
func InitializeDatabase(db *sql.DB) error {
	migrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		version := i + 1
		if err := runMigration(db, version, migrations[i]); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to check migration version: %w", err)
	}
	return v, nil
}

func runMigration(db *sql.DB, version int, apply func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := apply(tx); err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// applyMigration1 creates the drafts table
func applyMigration1(tx *sql.Tx) error {
	draftsTable := `
	CREATE TABLE drafts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		workflow_id TEXT,
		definition TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := tx.Exec(draftsTable); err != nil {
		return fmt.Errorf("failed to create drafts table: %w", err)
	}

	draftsIndexes := []string{
		"CREATE INDEX idx_drafts_updated_at ON drafts(updated_at DESC);",
		"CREATE INDEX idx_drafts_workflow_id ON drafts(workflow_id);",
	}

	for _, idx := range draftsIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create draft index: %w", err)
		}
	}
	return nil
}

// applyMigration2 adds the local test-run log
func applyMigration2(tx *sql.Tx) error {
	testRunsTable := `
	CREATE TABLE test_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		draft_id TEXT,
		workflow_id TEXT,
		agent_id TEXT NOT NULL,
		input TEXT NOT NULL,
		response TEXT,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (draft_id) REFERENCES drafts(id) ON DELETE SET NULL
	);`

	if _, err := tx.Exec(testRunsTable); err != nil {
		return fmt.Errorf("failed to create test_runs table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX idx_test_runs_created_at ON test_runs(created_at DESC);"); err != nil {
		return fmt.Errorf("failed to create test run index: %w", err)
	}
	return nil
}
