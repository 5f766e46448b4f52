package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS job_run (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    exchange TEXT NOT NULL,
    schedule_interval TEXT NOT NULL,
    base_holding_minutes INTEGER NOT NULL,
    price_basis TEXT NOT NULL,
    timezone TEXT NOT NULL,
    note TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trade_result (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    exchange TEXT NOT NULL,
    market_type TEXT NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    entry_time DATETIME NOT NULL,
    holding_minutes INTEGER NOT NULL,
    exit_time DATETIME NOT NULL,
    entry_price TEXT NOT NULL,
    exit_price TEXT,
    max_roi_pct TEXT,
    min_roi_pct TEXT,
    exit_roi_pct TEXT,
    max_price_during TEXT,
    min_price_during TEXT,
    price_basis TEXT NOT NULL,
    timezone TEXT NOT NULL,
    status TEXT NOT NULL,
    note TEXT,
    run_id INTEGER REFERENCES job_run(id),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(exchange, symbol, side, entry_time, holding_minutes)
);

CREATE INDEX IF NOT EXISTS idx_trade_result_status
    ON trade_result(status, exit_time);
CREATE INDEX IF NOT EXISTS idx_trade_result_run
    ON trade_result(run_id);
`

// ApplyMigrations bootstraps the schema; keep lightweight for fast startup.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Lightweight, idempotent migrations for older DB files.
	if err := ensureColumn(d.DB, "trade_result", "run_id", "INTEGER"); err != nil {
		return err
	}
	if err := ensureColumn(d.DB, "trade_result", "note", "TEXT"); err != nil {
		return err
	}
	if err := ensureColumn(d.DB, "job_run", "note", "TEXT"); err != nil {
		return err
	}

	return nil
}

// ensureColumn adds a column if it does not already exist.
func ensureColumn(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := db.Exec(alter); err != nil {
		return fmt.Errorf("alter table %s add column %s: %w", table, column, err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
