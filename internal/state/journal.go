package state

import (
	"database/sql"
	"time"

	"github.com/aboyet/scrobblepod/internal/db"
)

// Run is one recorded submission run against a device.
type Run struct {
	ID               int64
	DevicePath       string
	StartedAt        time.Time
	FinishedAt       time.Time
	TracksSubmitted  int
	BatchesSubmitted int
	// Status is "ok" or the failure message.
	Status string
}

// OK reports whether the run completed without error.
func (r Run) OK() bool {
	return r.Status == "ok"
}

// RecordRun appends a run to the journal and prunes old entries for
// the same device.
func (m *Manager) RecordRun(r Run) error {
	return db.WithTx(m.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs
			(device_path, started_at, finished_at, tracks_submitted, batches_submitted, status)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.DevicePath, r.StartedAt.Unix(), r.FinishedAt.Unix(),
			r.TracksSubmitted, r.BatchesSubmitted, r.Status)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			DELETE FROM runs WHERE device_path = ? AND id NOT IN (
				SELECT id FROM runs WHERE device_path = ?
				ORDER BY started_at DESC, id DESC LIMIT ?
			)
		`, r.DevicePath, r.DevicePath, keepRuns)
		return err
	})
}

// LastRun returns the most recent run for devicePath, or nil if the
// device has never been submitted from this machine.
func (m *Manager) LastRun(devicePath string) (*Run, error) {
	var r Run
	var startedAt, finishedAt int64

	err := m.db.QueryRow(`
		SELECT id, device_path, started_at, finished_at,
		       tracks_submitted, batches_submitted, status
		FROM runs WHERE device_path = ?
		ORDER BY started_at DESC, id DESC LIMIT 1
	`, devicePath).Scan(&r.ID, &r.DevicePath, &startedAt, &finishedAt,
		&r.TracksSubmitted, &r.BatchesSubmitted, &r.Status)

	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // nil run means never submitted, not an error
	}
	if err != nil {
		return nil, err
	}

	r.StartedAt = time.Unix(startedAt, 0)
	r.FinishedAt = time.Unix(finishedAt, 0)
	return &r, nil
}
