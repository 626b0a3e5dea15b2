package ipod

import (
	"fmt"
	"unicode/utf16"
)

// Field type codes inside an mhod sub-record. Everything else is left
// undecoded.
const (
	fieldTitle  = 1
	fieldAlbum  = 3
	fieldArtist = 4
)

// ParseCatalog decodes the iTunesDB track catalog into tracks in file
// order. Track records ("mhit") are not aligned to any fixed stride, so
// the scan is byte-wise: on every 'm' the next three bytes are read
// tentatively and the cursor rewinds to just past the 'm' when they are
// not "hit".
func ParseCatalog(c *Cursor) ([]Track, error) {
	var tracks []Track
	for !c.EOF() {
		b, err := c.ReadExact(1)
		if err != nil {
			return nil, err
		}
		if b[0] != 'm' {
			continue
		}
		c.Mark()
		rest, err := c.ReadExact(3)
		if err != nil || string(rest) != "hit" {
			c.Reset()
			continue
		}
		track, err := parseTrackRecord(c)
		if err != nil {
			return nil, fmt.Errorf("track record %d: %w", len(tracks), err)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// parseTrackRecord decodes one mhit record. The cursor sits just past
// the 4-byte marker; the record's header-length field counts from the
// marker itself, hence the -4 when skipping to the first sub-record.
func parseTrackRecord(c *Cursor) (Track, error) {
	track := Track{Active: true}

	c.Mark()
	headerLen, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return Track{}, err
	}
	if err := c.Skip(4); err != nil {
		return Track{}, err
	}
	fieldCount, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return Track{}, err
	}
	track.ID, err = c.ReadLittleEndianUint(4)
	if err != nil {
		return Track{}, err
	}
	if err := c.Skip(20); err != nil {
		return Track{}, err
	}
	durationMS, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return Track{}, err
	}
	track.DurationSeconds = int64(durationMS / 1000)

	c.Reset()
	if headerLen < 4 {
		return Track{}, fmt.Errorf("header length %d too small", headerLen)
	}
	if err := c.Skip(int64(headerLen) - 4); err != nil {
		return Track{}, err
	}

	for i := uint64(0); i < fieldCount; i++ {
		if err := parseFieldRecord(c, &track); err != nil {
			return Track{}, fmt.Errorf("field record %d: %w", i, err)
		}
	}
	return track, nil
}

// parseFieldRecord decodes one mhod sub-record. Whatever was consumed
// decoding the payload, the cursor ends up exactly totalSize bytes past
// the sub-record start: boundaries are governed by the declared size,
// never by the payload.
func parseFieldRecord(c *Cursor, track *Track) error {
	c.Mark()
	if err := c.Skip(8); err != nil {
		return err
	}
	totalSize, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return err
	}
	fieldType, err := c.ReadLittleEndianUint(4)
	if err != nil {
		return err
	}

	if fieldType == fieldTitle || fieldType == fieldAlbum || fieldType == fieldArtist {
		if err := c.Skip(12); err != nil {
			return err
		}
		strLen, err := c.ReadLittleEndianUint(4)
		if err != nil {
			return err
		}
		if err := c.Skip(8); err != nil {
			return err
		}
		data, err := c.ReadExact(int(strLen))
		if err != nil {
			return err
		}
		s := decodeUTF16LE(data)
		switch fieldType {
		case fieldTitle:
			track.Title = s
		case fieldAlbum:
			track.Album = s
		case fieldArtist:
			track.Artist = s
		}
	}

	c.Reset()
	return c.Skip(int64(totalSize))
}

// decodeUTF16LE decodes little-endian UTF-16 text. A trailing odd byte
// is dropped.
func decodeUTF16LE(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])|uint16(b[i+1])<<8)
	}
	return string(utf16.Decode(u))
}
