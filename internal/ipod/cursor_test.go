package ipod

import (
	"errors"
	"testing"
)

func TestCursor_ReadExact(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4})

	b, err := c.ReadExact(3)
	if err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	if len(b) != 3 || b[0] != 1 || b[2] != 3 {
		t.Errorf("ReadExact(3) = %v, want [1 2 3]", b)
	}
	if c.Offset() != 3 {
		t.Errorf("Offset() = %d, want 3", c.Offset())
	}
}

func TestCursor_ReadExact_Truncated(t *testing.T) {
	c := NewCursor([]byte{1, 2})

	_, err := c.ReadExact(3)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("ReadExact past EOF: err = %v, want ErrTruncated", err)
	}
	// A failed read must not consume anything.
	if c.Offset() != 0 {
		t.Errorf("Offset() = %d after failed read, want 0", c.Offset())
	}
}

func TestCursor_MarkReset(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4, 5})

	if _, err := c.ReadExact(2); err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	c.Mark()
	if _, err := c.ReadExact(2); err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	c.Reset()

	b, err := c.ReadExact(1)
	if err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	if b[0] != 3 {
		t.Errorf("byte after Reset = %d, want 3", b[0])
	}
}

func TestCursor_Skip(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4})

	if err := c.Skip(3); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if c.Offset() != 3 {
		t.Errorf("Offset() = %d, want 3", c.Offset())
	}

	if err := c.Skip(2); !errors.Is(err, ErrTruncated) {
		t.Errorf("Skip past EOF: err = %v, want ErrTruncated", err)
	}
	if err := c.Skip(-1); err == nil {
		t.Error("Skip(-1) should fail")
	}
}

func TestCursor_ReadLittleEndianUint(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		width int
		want  uint64
	}{
		{"one byte", []byte{0xAB}, 1, 0xAB},
		{"three bytes", []byte{0x01, 0x02, 0x03}, 3, 0x030201},
		{"four bytes", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 4, 0xFFFFFFFF},
		{"eight bytes", []byte{1, 0, 0, 0, 0, 0, 0, 0x80}, 8, 0x8000000000000001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(tt.data)
			got, err := c.ReadLittleEndianUint(tt.width)
			if err != nil {
				t.Fatalf("ReadLittleEndianUint failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadLittleEndianUint(%d) = %#x, want %#x", tt.width, got, tt.want)
			}
		})
	}
}

func TestCursor_ReadLittleEndianUint_BadWidth(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})

	if _, err := c.ReadLittleEndianUint(0); err == nil {
		t.Error("width 0 should fail")
	}
	if _, err := c.ReadLittleEndianUint(9); err == nil {
		t.Error("width 9 should fail")
	}
}

func TestCursor_EOF(t *testing.T) {
	c := NewCursor([]byte{1})

	if c.EOF() {
		t.Error("EOF() = true before reading")
	}
	if _, err := c.ReadExact(1); err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	if !c.EOF() {
		t.Error("EOF() = false after consuming everything")
	}
}
