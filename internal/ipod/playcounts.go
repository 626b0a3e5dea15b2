package ipod

import (
	"time"
)

// macEpochDelta converts HFS timestamps (seconds since 1904-01-01) to
// the Unix epoch.
const macEpochDelta = 2082844800

// PlayEntry is one non-zero play-count entry. Index is the position of
// the matching record in the catalog; the format carries no track ids,
// record order is the only correlation.
type PlayEntry struct {
	Index     int
	PlayCount int64
	// EndedAt is the unix time the last play finished. Zero for the
	// shuffle format, which stores no timestamps at all.
	EndedAt int64
}

// PlayCounts is a decoded play-count database.
type PlayCounts struct {
	Entries []PlayEntry
	// Synthetic marks databases without stored timestamps; play times
	// must be reconstructed from the wall clock and change on every
	// parse.
	Synthetic bool
}

// ParsePlayCounts decodes the full-database "Play Counts" layout:
// an 8-byte preamble, a 4-byte per-entry record length, a 4-byte entry
// count and 80 further header bytes, then fixed-length entries. The
// count includes one reserved header-like slot that is not a track
// entry, so one fewer entry is decoded; that off-by-one is part of the
// format.
//
// Stored timestamps are seconds since the Mac epoch in device-local
// time. As the original client did, the host's current UTC offset
// (DST included) is subtracted, taken from now - an approximation that
// is wrong for plays recorded under a different DST offset.
func ParsePlayCounts(c *Cursor, now time.Time) (PlayCounts, error) {
	if err := c.Skip(8); err != nil {
		return PlayCounts{}, err
	}
	entryLen, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return PlayCounts{}, err
	}
	entryCount, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return PlayCounts{}, err
	}
	if err := c.Skip(80); err != nil {
		return PlayCounts{}, err
	}

	_, utcOffset := now.Zone()

	var entries []PlayEntry
	for i := 0; i+1 < int(entryCount); i++ {
		c.Mark()
		count, err := c.ReadLittleEndianUint(4)
		if err != nil {
			return PlayCounts{}, err
		}
		if count > 0 {
			raw, err := c.ReadLittleEndianUint(4)
			if err != nil {
				return PlayCounts{}, err
			}
			entries = append(entries, PlayEntry{
				Index:     i,
				PlayCount: int64(count),
				EndedAt:   int64(raw) - macEpochDelta - int64(utcOffset),
			})
		}
		// Entry boundaries follow the declared record length, not
		// whatever was decoded above.
		c.Reset()
		if err := c.Skip(int64(entryLen)); err != nil {
			return PlayCounts{}, err
		}
	}
	return PlayCounts{Entries: entries}, nil
}
