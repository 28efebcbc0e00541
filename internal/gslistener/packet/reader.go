package packet

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Reader walks a GS→LS packet payload field by field in little-endian byte
// order. Unlike the game channel's zero-copy reader, ReadBytes always
// copies: GS registration retains what it reads (hex id) long past the
// pooled read buffer's reuse.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential reads starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) need(n int, who string) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%s: not enough data (pos=%d, need=%d, len=%d)", who, r.pos, n, len(r.data))
	}
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1, "ReadByte"); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadShort reads an int16 (2 bytes, LE).
func (r *Reader) ReadShort() (int16, error) {
	if err := r.need(2, "ReadShort"); err != nil {
		return 0, err
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return v, nil
}

// ReadInt reads an int32 (4 bytes, LE).
func (r *Reader) ReadInt() (int32, error) {
	if err := r.need(4, "ReadInt"); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

// ReadLong reads an int64 (8 bytes, LE).
func (r *Reader) ReadLong() (int64, error) {
	if err := r.need(8, "ReadLong"); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

// ReadString reads a UTF-16LE, null-terminated string and decodes it to
// UTF-8.
func (r *Reader) ReadString() (string, error) {
	var units []uint16

	for {
		if err := r.need(2, "ReadString"); err != nil {
			return "", err
		}
		unit := binary.LittleEndian.Uint16(r.data[r.pos:])
		r.pos += 2
		if unit == 0 {
			break
		}
		units = append(units, unit)
	}

	return string(utf16.Decode(units)), nil
}

// ReadBytes reads n bytes into a freshly allocated, independently mutable
// slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if err := r.need(n, "ReadBytes"); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position reports the current read offset.
func (r *Reader) Position() int {
	return r.pos
}
