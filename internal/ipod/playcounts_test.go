package ipod

import (
	"bytes"
	"testing"
	"time"
)

// playCountsDB builds a "Play Counts" database with 16-byte entries.
// The declared entry count includes the reserved slot, so one padding
// entry is appended past the real ones.
func playCountsDB(entries ...[2]uint32) []byte {
	var b bytes.Buffer
	b.Write(make([]byte, 8))
	b.Write(le32(16))
	b.Write(le32(uint32(len(entries) + 1)))
	b.Write(make([]byte, 80))
	for _, e := range entries {
		b.Write(le32(e[0]))
		b.Write(le32(e[1]))
		b.Write(make([]byte, 8))
	}
	b.Write(make([]byte, 16))
	return b.Bytes()
}

func TestParsePlayCounts(t *testing.T) {
	now := time.Date(2007, 6, 10, 16, 0, 0, 0, time.UTC)
	// 1181490351 unix = 3264335151 seconds past the Mac epoch.
	db := playCountsDB(
		[2]uint32{0, 0},
		[2]uint32{2, 3264335151},
		[2]uint32{0, 0},
		[2]uint32{1, 3264335151},
	)

	counts, err := ParsePlayCounts(NewCursor(db), now)
	if err != nil {
		t.Fatalf("ParsePlayCounts failed: %v", err)
	}
	if counts.Synthetic {
		t.Error("Synthetic = true, want false")
	}
	if len(counts.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(counts.Entries))
	}

	first := counts.Entries[0]
	if first.Index != 1 {
		t.Errorf("Entries[0].Index = %d, want 1", first.Index)
	}
	if first.PlayCount != 2 {
		t.Errorf("Entries[0].PlayCount = %d, want 2", first.PlayCount)
	}
	if first.EndedAt != 1181490351 {
		t.Errorf("Entries[0].EndedAt = %d, want 1181490351", first.EndedAt)
	}

	if counts.Entries[1].Index != 3 {
		t.Errorf("Entries[1].Index = %d, want 3", counts.Entries[1].Index)
	}
}

func TestParsePlayCounts_UTCOffset(t *testing.T) {
	// The stored timestamp is device-local; the host's current offset
	// is subtracted to get UTC.
	now := time.Date(2007, 6, 10, 16, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	db := playCountsDB([2]uint32{1, 3264335151})

	counts, err := ParsePlayCounts(NewCursor(db), now)
	if err != nil {
		t.Fatalf("ParsePlayCounts failed: %v", err)
	}
	if len(counts.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(counts.Entries))
	}
	if got := counts.Entries[0].EndedAt; got != 1181490351-7200 {
		t.Errorf("EndedAt = %d, want %d", got, 1181490351-7200)
	}
}

func TestParsePlayCounts_AllZero(t *testing.T) {
	db := playCountsDB([2]uint32{0, 0}, [2]uint32{0, 0})

	counts, err := ParsePlayCounts(NewCursor(db), time.Now().UTC())
	if err != nil {
		t.Fatalf("ParsePlayCounts failed: %v", err)
	}
	if len(counts.Entries) != 0 {
		t.Errorf("len(Entries) = %d, want 0", len(counts.Entries))
	}
}

func TestParsePlayCounts_Truncated(t *testing.T) {
	db := playCountsDB([2]uint32{1, 3264335151})

	if _, err := ParsePlayCounts(NewCursor(db[:40]), time.Now().UTC()); err == nil {
		t.Error("truncated database should fail")
	}
}
