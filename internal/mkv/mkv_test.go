package mkv

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1280x720 High profile SPS.
var testSPS = []byte{
	0x67, 0x64, 0x00, 0x1f, 0xac, 0xd9, 0x40, 0x50,
	0x05, 0xbb, 0xff, 0x00, 0x03, 0x00, 0x04, 0x6a,
	0x02, 0x02, 0x02, 0x80, 0x00, 0x01, 0xf4, 0x80,
	0x00, 0x5d, 0xc0, 0x07, 0x8c, 0x18, 0xcb,
}

var testPPS = []byte{0x68, 0xeb, 0xe3, 0xcb, 0x22, 0xc0}

func TestHeaderLen(t *testing.T) {
	assert.Equal(t, 35, HeaderLen(ClusterHead))
	assert.Equal(t, 13, HeaderLen(SimpleBlock))
	assert.Equal(t, 0, HeaderLen(ClusterType(0)))
}

func TestRenderClusterHead(t *testing.T) {
	buf := make([]byte, ClusterHeaderLen)
	err := RenderClusterHeader(buf, ClusterHeader{
		Cluster:     ClusterHead,
		Track:       TrackVideo,
		KeyFrame:    true,
		DataLen:     0x100,
		TimestampMs: 0x0102030405,
	})
	require.NoError(t, err)

	expected := []byte{
		0x1f, 0x43, 0xb6, 0x75,
		0x01, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xe7, 0x88, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05,
		0xa3, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x04,
		0x81, 0x00, 0x00, 0x80,
	}
	assert.Equal(t, expected, buf)
}

func TestRenderSimpleBlock(t *testing.T) {
	buf := make([]byte, SimpleBlockHeaderLen)
	err := RenderClusterHeader(buf, ClusterHeader{
		Cluster:     SimpleBlock,
		Track:       TrackAudio,
		DataLen:     10,
		TimestampMs: 1234,
		DeltaMs:     0xfffe,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa3, 0x01, 0, 0, 0, 0, 0, 0, 0x0e, 0x82, 0xff, 0xfe, 0x00}, buf)
}

func TestRenderClusterHeaderErrors(t *testing.T) {
	err := RenderClusterHeader(make([]byte, 12), ClusterHeader{Cluster: SimpleBlock, Track: TrackVideo})
	assert.True(t, errors.Is(err, ErrEncoding))

	err = RenderClusterHeader(make([]byte, 13), ClusterHeader{Cluster: ClusterType(9), Track: TrackVideo})
	assert.True(t, errors.Is(err, ErrEncoding))

	err = RenderClusterHeader(make([]byte, 13), ClusterHeader{Cluster: SimpleBlock, Track: TrackType(7)})
	assert.True(t, errors.Is(err, ErrEncoding))

	err = RenderClusterHeader(make([]byte, 13), ClusterHeader{Cluster: SimpleBlock, Track: TrackVideo, DataLen: -1})
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestParseClusterHeader(t *testing.T) {
	for _, h := range []ClusterHeader{
		{Cluster: ClusterHead, Track: TrackVideo, KeyFrame: true, DataLen: 4096, TimestampMs: 99999},
		{Cluster: SimpleBlock, Track: TrackAudio, DataLen: 0, DeltaMs: 40},
		{Cluster: SimpleBlock, Track: TrackVideo, DataLen: 70000, DeltaMs: 0x8000},
	} {
		buf := make([]byte, HeaderLen(h.Cluster))
		require.NoError(t, RenderClusterHeader(buf, h))

		parsed, err := ParseClusterHeader(buf)
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	}
}

func TestParseClusterHeaderMalformed(t *testing.T) {
	_, err := ParseClusterHeader([]byte{0x1a, 0x45, 0xdf, 0xa3})
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = ParseClusterHeader([]byte{0xa3, 0x01, 0x00})
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = ParseClusterHeader(nil)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestSegmentHeader(t *testing.T) {
	fixed := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	codec := &Codec{NewSegmentUID: func() uuid.UUID { return fixed }}

	video := &VideoTrackInfo{Name: "kvs video track", CodecID: CodecIDH264, Width: 1280, Height: 720}
	audio := &AudioTrackInfo{Name: "kvs audio track", CodecID: CodecIDAAC, Frequency: 8000, Channels: 1}

	hdr, err := codec.SegmentHeader(video, audio)
	require.NoError(t, err)

	// EBML header first, then an open-ended Segment.
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, hdr[:4])
	segment := []byte{0x18, 0x53, 0x80, 0x67, 0x01, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	assert.True(t, bytes.Contains(hdr, segment))
	assert.True(t, bytes.Contains(hdr, []byte("matroska")))
	assert.True(t, bytes.Contains(hdr, fixed[:]))
	assert.True(t, bytes.Contains(hdr, []byte("kvs video track")))
	assert.True(t, bytes.Contains(hdr, []byte(CodecIDAAC)))

	videoOnly, err := codec.SegmentHeader(video, nil)
	require.NoError(t, err)
	assert.True(t, len(videoOnly) < len(hdr))
	assert.False(t, bytes.Contains(videoOnly, []byte("kvs audio track")))
}

func TestSegmentHeaderInvalidTracks(t *testing.T) {
	_, err := DefaultCodec.SegmentHeader(nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidTrack))

	_, err = DefaultCodec.SegmentHeader(&VideoTrackInfo{Name: "v", CodecID: CodecIDH264}, nil)
	assert.True(t, errors.Is(err, ErrInvalidTrack))

	video := &VideoTrackInfo{Name: "v", CodecID: CodecIDH264, Width: 640, Height: 480}
	_, err = DefaultCodec.SegmentHeader(video, &AudioTrackInfo{Name: "a", CodecID: CodecIDAAC})
	assert.True(t, errors.Is(err, ErrInvalidTrack))
}

func TestRenderTags(t *testing.T) {
	tags := []Tag{
		{Name: "TEST_KEY_1D", Value: "TEST_VALUE_1D"},
		{Name: "AWS_KINESISVIDEO_END_OF_FRAGMENT"},
	}
	block, err := DefaultCodec.RenderTags(tags)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x54, 0xc3, 0x67}, block[:4])

	parsed, err := ParseTags(block)
	require.NoError(t, err)
	assert.Equal(t, tags, parsed)
}

func TestRenderTagsInvalid(t *testing.T) {
	_, err := DefaultCodec.RenderTags(nil)
	assert.True(t, errors.Is(err, ErrInvalidTag))

	_, err = DefaultCodec.RenderTags([]Tag{{Name: "", Value: "x"}})
	assert.True(t, errors.Is(err, ErrInvalidTag))

	_, err = DefaultCodec.RenderTags([]Tag{{Name: string(make([]byte, MaxTagNameLen+1))}})
	assert.True(t, errors.Is(err, ErrInvalidTag))

	_, err = DefaultCodec.RenderTags([]Tag{{Name: "k", Value: string(make([]byte, MaxTagValueLen+1))}})
	assert.True(t, errors.Is(err, ErrInvalidTag))
}

func TestNewH264Track(t *testing.T) {
	track, err := NewH264Track("kvs video track", testSPS, testPPS)
	require.NoError(t, err)
	assert.Equal(t, CodecIDH264, track.CodecID)
	assert.Equal(t, 1280, track.Width)
	assert.Equal(t, 720, track.Height)
	require.True(t, len(track.CodecPrivate) > 4)
	assert.EqualValues(t, 1, track.CodecPrivate[0])
	assert.EqualValues(t, 0x64, track.CodecPrivate[1])
}

func TestNewAACTrack(t *testing.T) {
	track, err := NewAACTrack("kvs audio track", 8000, 1)
	require.NoError(t, err)
	assert.Equal(t, CodecIDAAC, track.CodecID)
	assert.Equal(t, 8000, track.Frequency)
	assert.Equal(t, 1, track.Channels)
	require.True(t, len(track.CodecPrivate) >= 2)
	// AAC-LC, 8 kHz (index 11), mono.
	assert.Equal(t, []byte{0x15, 0x88}, track.CodecPrivate[:2])

	_, err = NewAACTrack("a", 0, 1)
	assert.True(t, errors.Is(err, ErrInvalidTrack))
}

func TestNewPCMTrack(t *testing.T) {
	track, err := NewPCMTrack("kvs audio track", PCMFormatALaw, 8000, 1)
	require.NoError(t, err)
	assert.Equal(t, CodecIDPCM, track.CodecID)
	assert.Equal(t, []byte{
		0x06, 0x00, 0x01, 0x00,
		0x40, 0x1f, 0x00, 0x00,
		0x40, 0x1f, 0x00, 0x00,
		0x01, 0x00, 0x08, 0x00,
		0x00, 0x00,
	}, track.CodecPrivate)

	_, err = NewPCMTrack("a", 1, 8000, 1)
	assert.True(t, errors.Is(err, ErrInvalidTrack))
}
