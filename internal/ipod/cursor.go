// Package ipod decodes the binary databases an iPod keeps under its
// iTunes directory: the track catalog (iTunesDB) and the play-count
// database, which exists in two incompatible layouts ("Play Counts" on
// full devices, "iTunesStats" on shuffles).
package ipod

import (
	"errors"
	"fmt"
	"os"
)

// ErrTruncated is returned when a database ends before a fixed-size
// field could be read in full.
var ErrTruncated = errors.New("truncated database")

// Cursor is a forward-only reader over a device database with a single
// mark/reset slot. The databases are at most a few megabytes, so the
// whole file is held in memory; that keeps rewinds and exact skips
// trivial where a buffered stream would need careful mark bookkeeping.
type Cursor struct {
	data []byte
	pos  int
	mark int
}

// NewCursor returns a cursor over data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// OpenCursor reads the file at path and returns a cursor over its
// contents.
func OpenCursor(path string) (*Cursor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewCursor(data), nil
}

// ReadExact returns the next n bytes, advancing the cursor. It fails
// with ErrTruncated if fewer than n bytes remain; short reads during
// fixed-field decoding are always fatal for the file. The returned
// slice aliases the cursor's buffer.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read %d bytes: negative length", n)
	}
	if c.pos+n > len(c.data) {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, c.pos, ErrTruncated)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances the cursor by exactly n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("skip %d bytes: negative length", n)
	}
	if int64(c.pos)+n > int64(len(c.data)) {
		return fmt.Errorf("skip %d bytes at offset %d: %w", n, c.pos, ErrTruncated)
	}
	c.pos += int(n)
	return nil
}

// Mark records the current position. Only one mark is held at a time;
// the record parsers decode fields tentatively, then Reset and Skip to
// the boundary the record's declared size dictates.
func (c *Cursor) Mark() {
	c.mark = c.pos
}

// Reset rewinds the cursor to the last Mark.
func (c *Cursor) Reset() {
	c.pos = c.mark
}

// Offset returns the current position from the start of the data.
func (c *Cursor) Offset() int {
	return c.pos
}

// EOF reports whether the cursor is exhausted.
func (c *Cursor) EOF() bool {
	return c.pos >= len(c.data)
}

// ReadLittleEndianUint decodes a little-endian unsigned integer of
// width bytes, width 1 through 8. The device formats use 3- and 4-byte
// fields, which is why this is not encoding/binary.
func (c *Cursor) ReadLittleEndianUint(width int) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, fmt.Errorf("uint width %d: out of range", width)
	}
	b, err := c.ReadExact(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}
