package packet

import (
	"fmt"
	"math/bits"
)

type Reader struct {
	buffer []byte
	offset int
}

func NewReader(buffer []byte) *Reader {
	return &Reader{buffer, 0}
}

func (r *Reader) ReadByte() byte {
	v := r.buffer[r.offset]
	r.offset++
	return v
}

func (r *Reader) ReadUint16() uint16 {
	v := networkOrder.Uint16(r.buffer[r.offset:])
	r.offset += 2
	return v
}

func (r *Reader) ReadUint32() uint32 {
	v := networkOrder.Uint32(r.buffer[r.offset:])
	r.offset += 4
	return v
}

func (r *Reader) ReadUint64() uint64 {
	v := networkOrder.Uint64(r.buffer[r.offset:])
	r.offset += 8
	return v
}

// Read an EBML element ID, keeping its length marker.
func (r *Reader) ReadID() (uint32, error) {
	width, err := r.peekWidth(4)
	if err != nil {
		return 0, err
	}
	var id uint32
	for i := 0; i < width; i++ {
		id = id<<8 | uint32(r.ReadByte())
	}
	return id, nil
}

// Read an EBML variable-length integer, stripping the length marker. Returns
// the value and the number of bytes consumed.
func (r *Reader) ReadVint() (uint64, int, error) {
	width, err := r.peekWidth(8)
	if err != nil {
		return 0, 0, err
	}
	v := uint64(r.ReadByte()) & (0xff >> uint(width))
	for i := 1; i < width; i++ {
		v = v<<8 | uint64(r.ReadByte())
	}
	return v, width, nil
}

func (r *Reader) peekWidth(max int) (int, error) {
	if err := r.CheckRemaining(1); err != nil {
		return 0, err
	}
	width := bits.LeadingZeros8(r.buffer[r.offset]) + 1
	if width > max {
		return 0, fmt.Errorf("invalid vint marker %02x", r.buffer[r.offset])
	}
	if err := r.CheckRemaining(width); err != nil {
		return 0, err
	}
	return width, nil
}

func (r *Reader) ReadSlice(n int) []byte {
	v := r.buffer[r.offset : r.offset+n]
	r.offset += n
	return v
}

func (r *Reader) Skip(n int) {
	r.offset += n
}

// Return the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.offset
}

// Return the number of bytes left in the buffer.
func (r *Reader) Remaining() int {
	return len(r.buffer) - r.offset
}

func (r *Reader) CheckRemaining(needed int) error {
	if r.Remaining() < needed {
		return fmt.Errorf("%d bytes remaining, %d needed", r.Remaining(), needed)
	}
	return nil
}
