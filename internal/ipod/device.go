package ipod

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File names inside the device's iTunes directory.
const (
	CatalogFile    = "iTunesDB"
	PlayCountsFile = "Play Counts"
	StatsFile      = "iTunesStats"
)

// Device locates the database files under one mount path and remembers
// which play-count variant the device uses.
type Device struct {
	Dir     string
	Shuffle bool
}

// Probe inspects dir and selects the play-count variant: the presence
// of the shuffle stats file marks a shuffle device.
func Probe(dir string) (Device, error) {
	if _, err := os.Stat(filepath.Join(dir, CatalogFile)); err != nil {
		return Device{}, fmt.Errorf("no device database in %s: %w", dir, err)
	}
	_, err := os.Stat(filepath.Join(dir, StatsFile))
	return Device{Dir: dir, Shuffle: err == nil}, nil
}

// CatalogPath returns the path of the track catalog.
func (d Device) CatalogPath() string {
	return filepath.Join(d.Dir, CatalogFile)
}

// PlayCountsPath returns the path of the play-count database for the
// probed variant.
func (d Device) PlayCountsPath() string {
	if d.Shuffle {
		return filepath.Join(d.Dir, StatsFile)
	}
	return filepath.Join(d.Dir, PlayCountsFile)
}

// ReadCatalog parses the device catalog. The catalog is present on any
// synced device; failures here are reported distinctly from play-count
// failures.
func (d Device) ReadCatalog() ([]Track, error) {
	c, err := OpenCursor(d.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog: %w", err)
	}
	tracks, err := ParseCatalog(c)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog: %w", err)
	}
	return tracks, nil
}

// ReadPlayCounts parses the play-count database for the probed variant.
// Unlike the catalog, this file commonly does not exist: the device
// only recreates it once something has been played since the last sync.
func (d Device) ReadPlayCounts(now time.Time) (PlayCounts, error) {
	c, err := OpenCursor(d.PlayCountsPath())
	if err != nil {
		return PlayCounts{}, fmt.Errorf(
			"cannot read play counts (has anything been played since the last sync?): %w", err)
	}
	var counts PlayCounts
	if d.Shuffle {
		counts, err = ParseStats(c)
	} else {
		counts, err = ParsePlayCounts(c, now)
	}
	if err != nil {
		return PlayCounts{}, fmt.Errorf("cannot read play counts: %w", err)
	}
	return counts, nil
}
