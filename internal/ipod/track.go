package ipod

import "strings"

// Track is one record from the device catalog, in catalog order. Play
// information stays zero until the record is reconciled against the
// play-count database; the play-count formats correlate to the catalog
// by record index, so catalog order must never be disturbed.
type Track struct {
	ID              uint64
	DurationSeconds int64
	Title           string
	Album           string
	Artist          string

	PlayCount    int64
	LastPlayedAt int64 // unix seconds, start of the last play
	Active       bool  // eligible for submission
}

// IsCompilation reports whether the stored artist matches one of the
// compilation markers, case-insensitively and ignoring surrounding
// whitespace. Compilation tracks carry the real artist inside the
// title field.
func (t Track) IsCompilation(markers []string) bool {
	if t.Artist == "" {
		return false
	}
	artist := strings.ToLower(strings.TrimSpace(t.Artist))
	for _, m := range markers {
		if artist == strings.ToLower(strings.TrimSpace(m)) {
			return true
		}
	}
	return false
}

// ResolveCredits returns the artist and title to report for this track.
// For compilation tracks the stored title holds both, joined by "-":
// the left half is the artist and the right half the title, trimmed.
// The split is on the first "-" only. A compilation title without the
// delimiter resolves to the stored fields unchanged rather than
// guessing. The stored fields are never mutated.
func (t Track) ResolveCredits(markers []string) (artist, title string) {
	if !t.IsCompilation(markers) {
		return t.Artist, t.Title
	}
	left, right, ok := strings.Cut(t.Title, "-")
	if !ok {
		return t.Artist, t.Title
	}
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

// SplitMarkers splits a ";"-separated marker string into a trimmed
// marker set, the form older preference files stored.
func SplitMarkers(s string) []string {
	parts := strings.Split(s, ";")
	markers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			markers = append(markers, p)
		}
	}
	return markers
}
