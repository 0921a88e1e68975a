//////////////////////////////////////////////////////////////////////////////
//
// Config contains configuration data for a Stream
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohakvs

import (
	"github.com/lanikai/alohakvs/internal/mkv"
)

type (
	TrackType      = mkv.TrackType
	ClusterType    = mkv.ClusterType
	Tag            = mkv.Tag
	VideoTrackInfo = mkv.VideoTrackInfo
	AudioTrackInfo = mkv.AudioTrackInfo
)

const (
	TrackVideo = mkv.TrackVideo
	TrackAudio = mkv.TrackAudio

	ClusterHead = mkv.ClusterHead
	SimpleBlock = mkv.SimpleBlock
)

// HeaderCodec renders the container bytes attached to a stream and its frames.
type HeaderCodec interface {
	// Length of the header for a cluster type, or 0 if unrecognized.
	ClusterHeaderLen(ct ClusterType) int

	// Render a frame header into buf, which must be exactly
	// ClusterHeaderLen(h.Cluster) bytes.
	RenderClusterHeader(buf []byte, h mkv.ClusterHeader) error

	// Render a tags block. The returned buffer is owned by the caller.
	RenderTags(tags []Tag) ([]byte, error)

	// Render the EBML and Segment preamble. audio may be nil.
	SegmentHeader(video *VideoTrackInfo, audio *AudioTrackInfo) ([]byte, error)
}

const defaultTagCacheSize = 16

// Config contains configuration data for a Stream.
type Config struct {
	// Required.
	Video *VideoTrackInfo

	// Optional. Frames on the audio track are rejected when nil.
	Audio *AudioTrackInfo

	// Defaults to mkv.DefaultCodec.
	Codec HeaderCodec

	// Number of rendered tags blocks remembered for reuse across cluster
	// boundaries. Defaults to 16; negative disables the cache.
	TagCacheSize int
}
