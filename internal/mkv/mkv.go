// Package mkv renders the Matroska byte sequences a streaming producer needs:
// the EBML/Segment preamble, per-frame cluster and simple-block headers, and
// tags blocks.
//
// Cluster and simple-block headers have a fixed layout so that a frame's
// header buffer can be allocated before its delta timestamp is known and
// re-rendered in place later:
//
//	Cluster (35 bytes)
//	  1F 43 B6 75               Cluster ID
//	  01 FF FF FF FF FF FF FF   unknown size
//	  E7 88 tt tt tt tt tt tt tt tt   Timecode, milliseconds
//	  <simple block header>
//
//	SimpleBlock (13 bytes)
//	  A3                        SimpleBlock ID
//	  01 ss ss ss ss ss ss ss   size (payload + 4)
//	  8n                        track number
//	  dd dd                     signed delta timecode
//	  ff                        flags, 0x80 for key frames
package mkv

import (
	"github.com/lanikai/alohakvs/internal/logging"
)

var log = logging.DefaultLogger.WithTag("mkv")

type TrackType int

const (
	TrackVideo TrackType = iota + 1
	TrackAudio
)

func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Track number and Matroska TrackType value.
func (t TrackType) number() uint64 {
	return uint64(t)
}

type ClusterType int

const (
	// SimpleBlock is a frame inside the current cluster.
	SimpleBlock ClusterType = iota + 1

	// ClusterHead opens a new cluster. Its own delta is always 0.
	ClusterHead
)

func (c ClusterType) String() string {
	switch c {
	case SimpleBlock:
		return "simple-block"
	case ClusterHead:
		return "cluster"
	default:
		return "unknown"
	}
}

// Element IDs.
const (
	idCluster     = 0x1f43b675
	idTimecode    = 0xe7
	idSimpleBlock = 0xa3
)

const (
	// Timestamps are in milliseconds.
	TimecodeScale = 1000000

	clusterPrefixLen = 4 + 8 + 1 + 1 + 8

	SimpleBlockHeaderLen = 1 + 8 + 1 + 2 + 1
	ClusterHeaderLen     = clusterPrefixLen + SimpleBlockHeaderLen

	keyFrameFlag = 0x80
)

// CodecIDs used by the track helpers.
const (
	CodecIDH264 = "V_MPEG4/ISO/AVC"
	CodecIDAAC  = "A_AAC"
	CodecIDPCM  = "A_MS/ACM"
)
