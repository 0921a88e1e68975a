package packet

import (
	"encoding/binary"
	"fmt"
)

var networkOrder = binary.BigEndian

// Writer fills a fixed-size buffer front to back. Matroska headers have a
// fixed layout, so the buffer is sized up front and never grows.
type Writer struct {
	buffer []byte
	offset int
}

func NewWriter(buffer []byte) *Writer {
	return &Writer{buffer, 0}
}

func NewWriterSize(n int) *Writer {
	return NewWriter(make([]byte, n))
}

func (w *Writer) WriteByte(v byte) {
	w.buffer[w.offset] = v
	w.offset++
}

func (w *Writer) WriteUint16(v uint16) {
	networkOrder.PutUint16(w.buffer[w.offset:], v)
	w.offset += 2
}

func (w *Writer) WriteUint32(v uint32) {
	networkOrder.PutUint32(w.buffer[w.offset:], v)
	w.offset += 4
}

func (w *Writer) WriteUint64(v uint64) {
	networkOrder.PutUint64(w.buffer[w.offset:], v)
	w.offset += 8
}

// Write an EBML element ID. IDs already carry their own length marker, so
// only the significant bytes are written.
func (w *Writer) WriteID(id uint32) {
	switch {
	case id > 0xffffff:
		w.WriteUint32(id)
	case id > 0xffff:
		w.WriteByte(byte(id >> 16))
		w.WriteUint16(uint16(id))
	case id > 0xff:
		w.WriteUint16(uint16(id))
	default:
		w.WriteByte(byte(id))
	}
}

// Write v as an EBML variable-length integer occupying exactly width bytes.
// The caller is responsible for v fitting in 7*width bits.
func (w *Writer) WriteVint(v uint64, width int) {
	marker := uint64(1) << uint(7*width)
	v |= marker
	for i := width - 1; i >= 0; i-- {
		w.WriteByte(byte(v >> uint(8*i)))
	}
}

// Write the reserved "unknown size" marker of the given width, i.e. a vint
// with every value bit set.
func (w *Writer) WriteUnknownSize(width int) {
	w.WriteByte(0x80 >> uint(width-1) | (0xff >> uint(width)))
	for i := 1; i < width; i++ {
		w.WriteByte(0xff)
	}
}

// Write the given bytes, if there is enough room.
func (w *Writer) WriteSlice(p []byte) error {
	if err := w.CheckCapacity(len(p)); err != nil {
		return err
	}
	w.offset += copy(w.buffer[w.offset:], p)
	return nil
}

// Return the number of bytes written so far.
func (w *Writer) Length() int {
	return w.offset
}

// Return the number of bytes that can still be written.
func (w *Writer) Capacity() int {
	return len(w.buffer) - w.offset
}

func (w *Writer) CheckCapacity(needed int) error {
	if w.Capacity() < needed {
		return fmt.Errorf("%d bytes available, %d needed", w.Capacity(), needed)
	}
	return nil
}

// Return a slice of the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buffer[0:w.offset]
}

func (w *Writer) Reset() {
	w.offset = 0
}
