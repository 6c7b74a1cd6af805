// Package ledger is the durable store for accounts, positions, and PnL
// history, backed by SQLite. Every upsert or close is a single statement,
// atomic per key, so concurrent reconcile cycles and PnL computations
// cannot lose updates.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// ErrAccountNotFound is returned when a requested account has never been
// seen in any snapshot.
var ErrAccountNotFound = errors.New("account not found")

// Store provides keyed access to the three ledger collections.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (and if necessary creates) the ledger database at path,
// in WAL mode with a busy timeout so the poller and API handlers can
// interleave writes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer connection keeps statement-level atomicity simple.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[ledger] opened database at %s", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			account_id     TEXT PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			balance        REAL NOT NULL DEFAULT 0,
			collateral     REAL NOT NULL DEFAULT 0,
			realized_pnl   REAL NOT NULL DEFAULT 0,
			unrealized_pnl REAL NOT NULL DEFAULT 0,
			total_assets   REAL NOT NULL DEFAULT 0,
			total_pnl      REAL NOT NULL DEFAULT 0,
			updated_at     INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS positions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id     TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			size           REAL NOT NULL,
			entry_price    REAL NOT NULL,
			current_price  REAL NOT NULL DEFAULT 0,
			margin         REAL NOT NULL DEFAULT 0,
			unrealized_pnl REAL NOT NULL DEFAULT 0,
			is_open        INTEGER NOT NULL DEFAULT 1,
			updated_at     INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_pair
			ON positions (account_id, symbol) WHERE is_open = 1;
		CREATE INDEX IF NOT EXISTS idx_positions_account
			ON positions (account_id);

		CREATE TABLE IF NOT EXISTS pnl_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id     TEXT NOT NULL,
			ts             INTEGER NOT NULL,
			realized_pnl   REAL NOT NULL,
			unrealized_pnl REAL NOT NULL,
			total_assets   REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_pnl_snapshots_account_ts
			ON pnl_snapshots (account_id, ts);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
