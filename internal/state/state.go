// Package state persists a per-device journal of submission runs.
package state

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "scrobblepod"
	dbFileName = "scrobblepod.db"
	// keepRuns bounds the journal per device.
	keepRuns = 100
)

// Manager owns the journal database.
type Manager struct {
	db *sql.DB
}

// Open opens the journal in the user's XDG data directory, creating it
// on first use.
func Open() (*Manager, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(dbPath)
}

// OpenAt opens the journal at an explicit path.
func OpenAt(dbPath string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db}, nil
}

// Close closes the journal database.
func (m *Manager) Close() error {
	return m.db.Close()
}
