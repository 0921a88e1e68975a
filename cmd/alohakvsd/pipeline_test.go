package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lanikai/alohakvs"
	"github.com/lanikai/alohakvs/internal/config"
	"github.com/lanikai/alohakvs/internal/metrics"
)

var (
	testSPS = []byte{
		0x67, 0x64, 0x00, 0x1f, 0xac, 0xd9, 0x40, 0x50,
		0x05, 0xbb, 0xff, 0x00, 0x03, 0x00, 0x04, 0x6a,
		0x02, 0x02, 0x02, 0x80, 0x00, 0x01, 0xf4, 0x80,
		0x00, 0x5d, 0xc0, 0x07, 0x8c, 0x18, 0xcb,
	}
	testPPS   = []byte{0x68, 0xeb, 0xe3, 0xcb, 0x22, 0xc0}
	testIDR   = []byte{0x65, 0x88, 0x84, 0x00, 0x10}
	testSlice = []byte{0x41, 0x9a, 0x02, 0x03, 0x20}
)

const startMs = 1000

var clusterID = []byte{0x1f, 0x43, 0xb6, 0x75}

// Two GOPs: IDR P P, IDR P.
func testVideoInput() []byte {
	var buf bytes.Buffer
	for _, nalu := range [][]byte{
		testSPS, testPPS, testIDR, testSlice, testSlice,
		testSPS, testPPS, testIDR, testSlice,
	} {
		buf.Write([]byte{0, 0, 0, 1})
		buf.Write(nalu)
	}
	return buf.Bytes()
}

func testAudioConfig() config.AudioConfig {
	cfg := config.Default().Audio
	cfg.Enabled = true
	cfg.Codec = config.AudioCodecG711
	return cfg
}

func newTestPipeline(t *testing.T) (*pipeline, []frameSource) {
	video, videoTrack, err := openVideo(bytes.NewReader(testVideoInput()), "kvs video track", 10, startMs)
	require.NoError(t, err)
	assert.Equal(t, 1280, videoTrack.Width)

	// 100 ms of 8 kHz mono A-law.
	audio, audioTrack, err := openAudio(bytes.NewReader(make([]byte, 800)), testAudioConfig(), startMs)
	require.NoError(t, err)

	stream, err := alohakvs.NewStream(alohakvs.Config{Video: videoTrack, Audio: audioTrack})
	require.NoError(t, err)
	return newPipeline(stream, metrics.New(stream), startMs), []frameSource{video, audio}
}

func TestSourceTimestamps(t *testing.T) {
	video, _, err := openVideo(bytes.NewReader(testVideoInput()), "v", 10, startMs)
	require.NoError(t, err)
	var got []uint64
	var clusters []alohakvs.ClusterType
	for {
		in, err := video.Next()
		if err != nil {
			break
		}
		got = append(got, in.TimestampMs)
		clusters = append(clusters, in.Cluster)
	}
	assert.Equal(t, []uint64{1000, 1100, 1200, 1300, 1400}, got)
	assert.Equal(t, []alohakvs.ClusterType{
		alohakvs.ClusterHead, alohakvs.SimpleBlock, alohakvs.SimpleBlock,
		alohakvs.ClusterHead, alohakvs.SimpleBlock,
	}, clusters)

	audio, _, err := openAudio(bytes.NewReader(make([]byte, 480)), testAudioConfig(), startMs)
	require.NoError(t, err)
	got = nil
	for {
		in, err := audio.Next()
		if err != nil {
			break
		}
		got = append(got, in.TimestampMs)
		assert.Len(t, in.Data, 160)
		assert.Equal(t, alohakvs.TrackAudio, in.Track)
	}
	assert.Equal(t, []uint64{1000, 1020}, got[:2])
	assert.Len(t, got, 3)
}

func TestPipeline(t *testing.T) {
	p, sources := newTestPipeline(t)
	p.tags = []alohakvs.Tag{{Name: "LOCATION", Value: "porch"}}

	var out bytes.Buffer
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return p.produce(ctx, sources...) })
	g.Go(func() error { return p.consume(ctx, &out) })
	require.NoError(t, g.Wait())

	seg, err := p.stream.SegmentHeader()
	require.NoError(t, err)
	b := out.Bytes()
	require.True(t, bytes.HasPrefix(b, seg))

	assert.Equal(t, 2, bytes.Count(b, clusterID))
	// Boundary tags at the second cluster, trailing tags after the last frame.
	assert.Equal(t, 2, bytes.Count(b, []byte("LOCATION")))
	assert.Equal(t, 1, bytes.Count(b, []byte(alohakvs.EndOfFragmentTagName)))

	st := p.stream.Stats()
	assert.Equal(t, uint64(10), st.Enqueued)
	assert.Equal(t, uint64(10), st.Dequeued)
	assert.Equal(t, uint64(2), st.TagsInjected)
	assert.Equal(t, uint64(len(b)), p.metrics.BytesWritten)
	assert.NoError(t, p.stream.Close())
}

func TestPipelineDropsOldest(t *testing.T) {
	p, sources := newTestPipeline(t)
	seg, err := p.stream.SegmentHeader()
	require.NoError(t, err)
	p.memLimit = len(seg) + 1024

	// No consumer, so the stream only ever shrinks by dropping.
	require.NoError(t, p.produce(context.Background(), sources...))

	total, err := p.stream.MemStatTotal()
	require.NoError(t, err)
	assert.True(t, total <= p.memLimit)
	assert.NotZero(t, p.metrics.FramesDropped)
	assert.Equal(t, uint64(10), p.metrics.FramesRead)
	assert.Equal(t, 10-int(p.metrics.FramesDropped), p.stream.Len())

	require.NoError(t, drain(p.stream))
	assert.NoError(t, p.stream.Close())
}

func TestPipelineCancelled(t *testing.T) {
	p, sources := newTestPipeline(t)
	p.realtime = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, p.produce(ctx, sources...))
}
