package ipod

// ParseStats decodes the shuffle-device "iTunesStats" layout: a 3-byte
// entry count and 3 further header bytes, then 18-byte entries of 12
// unused bytes, a 3-byte play count and a 3-byte skip count. As with
// the full format, the count includes one reserved slot that is not a
// track entry.
//
// The format stores no timestamps, so the returned entries are marked
// Synthetic: play times have to be reconstructed by assuming the plays
// happened back to back, ending now. A re-parse after a failed
// submission therefore yields different timestamps for the same device
// play; shuffle submissions are best-effort and the history ledger
// cannot suppress their duplicates.
func ParseStats(c *Cursor) (PlayCounts, error) {
	entryCount, err := c.ReadLittleEndianUint(3)
	if err != nil {
		return PlayCounts{}, err
	}
	if err := c.Skip(3); err != nil {
		return PlayCounts{}, err
	}

	var entries []PlayEntry
	for i := 0; i+1 < int(entryCount); i++ {
		if err := c.Skip(12); err != nil {
			return PlayCounts{}, err
		}
		count, err := c.ReadLittleEndianUint(3)
		if err != nil {
			return PlayCounts{}, err
		}
		if err := c.Skip(3); err != nil {
			return PlayCounts{}, err
		}
		if count > 0 {
			entries = append(entries, PlayEntry{Index: i, PlayCount: int64(count)})
		}
	}
	return PlayCounts{Entries: entries, Synthetic: true}, nil
}
