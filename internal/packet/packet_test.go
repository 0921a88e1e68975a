package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteID(t *testing.T) {
	w := NewWriterSize(16)
	w.WriteID(0x1f43b675)
	w.WriteID(0xe7)
	w.WriteID(0x4282)
	assert.Equal(t, []byte{0x1f, 0x43, 0xb6, 0x75, 0xe7, 0x42, 0x82}, w.Bytes())

	r := NewReader(w.Bytes())
	for _, want := range []uint32{0x1f43b675, 0xe7, 0x4282} {
		id, err := r.ReadID()
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 0, r.Remaining())
}

func TestVint(t *testing.T) {
	w := NewWriterSize(9)
	w.WriteVint(0x1234, 8)
	w.WriteVint(2, 1)
	assert.Equal(t, []byte{0x01, 0, 0, 0, 0, 0, 0x12, 0x34, 0x82}, w.Bytes())

	r := NewReader(w.Bytes())
	v, n, err := r.ReadVint()
	require.NoError(t, err)
	assert.EqualValues(t, 0x1234, v)
	assert.Equal(t, 8, n)

	v, n, err = r.ReadVint()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	assert.Equal(t, 1, n)
}

func TestUnknownSize(t *testing.T) {
	w := NewWriterSize(9)
	w.WriteUnknownSize(8)
	w.WriteUnknownSize(1)
	assert.Equal(t, []byte{0x01, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, w.Bytes())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01, 0x00})
	_, _, err := r.ReadVint()
	assert.Error(t, err)

	r = NewReader([]byte{0x00})
	_, err = r.ReadID()
	assert.Error(t, err)
}

func TestWriteSliceCapacity(t *testing.T) {
	w := NewWriterSize(2)
	assert.Error(t, w.WriteSlice([]byte{1, 2, 3}))
	assert.NoError(t, w.WriteSlice([]byte{1, 2}))
	assert.Equal(t, 0, w.Capacity())
	assert.Equal(t, 2, w.Length())
}
