// Package store persists a ledger of runs and per-item outcomes in a
// local sqlite database, so a multi-thousand-file batch can be audited
// after the terminal scrollback is gone.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Ledger struct {
	db *sql.DB
}

func NewLedger(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	ledger := &Ledger{db: db}

	if err := ledger.runMigrations(); err != nil {
		return nil, fmt.Errorf("could not migrate ledger: %w", err)
	}

	return ledger, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
