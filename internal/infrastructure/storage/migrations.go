package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_transaction_tables",
		Up:      migration001TransactionTables,
	},
	{
		Version: 2,
		Name:    "add_matching_rules_table",
		Up:      migration002MatchingRules,
	},
	{
		Version: 3,
		Name:    "add_recon_matching_summary_table",
		Up:      migration003ReconSummary,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// migration001TransactionTables creates the three raw feed tables. The
// column sets mirror what the upstream file-ingestion component loads
// for each source.
func migration001TransactionTables(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS atm_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			datetime TIMESTAMP,
			terminalid TEXT,
			location TEXT,
			atmindex TEXT,
			pan_masked TEXT,
			account_masked TEXT,
			transactiontype TEXT,
			amount REAL,
			currency TEXT,
			stan TEXT,
			rrn TEXT,
			auth TEXT,
			responsecode TEXT,
			responsedesc TEXT,
			uploaded_by INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_atm_transactions_rrn ON atm_transactions(rrn)`,

		`CREATE TABLE IF NOT EXISTS switch_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			datetime TIMESTAMP,
			direction TEXT,
			mti INTEGER,
			pan_masked TEXT,
			processingcode INTEGER,
			amountminor REAL,
			currency TEXT,
			stan TEXT,
			rrn TEXT,
			terminalid TEXT,
			source TEXT,
			destination TEXT,
			responsecode TEXT,
			authid TEXT,
			uploaded_by INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_switch_transactions_rrn ON switch_transactions(rrn)`,

		`CREATE TABLE IF NOT EXISTS cbs_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			posted_datetime TIMESTAMP,
			fc_txn_id TEXT,
			rrn TEXT,
			stan TEXT,
			account_masked TEXT,
			dr REAL,
			cr REAL,
			currency TEXT,
			status TEXT,
			description TEXT,
			uploaded_by INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cbs_transactions_rrn ON cbs_transactions(rrn)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migration002MatchingRules creates the versioned rule table. Rule
// bodies are stored as JSON text; the active rule for (added_by,
// rule_category) is the one with the highest id.
func migration002MatchingRules(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matching_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			basic_details TEXT NOT NULL,
			classification TEXT NOT NULL,
			rule_category INTEGER NOT NULL,
			match_condition TEXT NOT NULL,
			tolerance TEXT NOT NULL,
			added_by TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matching_rules_owner_category
			ON matching_rules(added_by, rule_category)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migration003ReconSummary creates the per-run summary table. The three
// bucket columns hold the pipe/semicolon encoding; a re-run with the
// same reference overwrites them in place.
func migration003ReconSummary(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recon_matching_summary (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recon_reference_number TEXT NOT NULL UNIQUE,
			matched TEXT,
			partially_matched TEXT,
			un_matched TEXT,
			added_by INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
