//////////////////////////////////////////////////////////////////////////////
//
// Frames resident in a Stream
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohakvs

import (
	"container/list"
	"sync"
)

// DataFrameIn describes one access unit handed to Stream.AddFrame.
type DataFrameIn struct {
	// Encoded payload. Borrowed: the stream never copies or frees it, and the
	// caller must keep it unchanged until the frame is released.
	Data []byte

	TimestampMs uint64
	Track       TrackType
	Cluster     ClusterType
	KeyFrame    bool
}

// Frame is an access unit resident in, or popped from, a Stream, together
// with its rendered Matroska header.
type Frame struct {
	in DataFrameIn

	// Payload length encoded in the block header.
	blockLen int

	// Rendered header. After boundary tag injection it starts with a tags
	// block and the cluster header begins at clusterOffset.
	header        []byte
	clusterOffset int

	// Set once trailing tags have been appended to a copy of the payload.
	ownsData bool

	// Set once the boundary injector has counted this cluster head.
	boundarySeen bool

	// Non-nil while the frame is pending in its stream.
	elem *list.Element

	// The owning stream's lock.
	mu *sync.Mutex
}

func (f *Frame) Timestamp() uint64 {
	return f.in.TimestampMs
}

func (f *Frame) Track() TrackType {
	return f.in.Track
}

func (f *Frame) Cluster() ClusterType {
	return f.in.Cluster
}

func (f *Frame) IsKeyFrame() bool {
	return f.in.KeyFrame
}

// Content returns the header and payload to transmit, in that order. Both are
// read-only views.
func (f *Frame) Content() (header, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content()
}

func (f *Frame) content() (header, data []byte) {
	return f.header, f.in.Data
}

// The cluster header, without any injected tags prefix.
func (f *Frame) clusterHeader() []byte {
	return f.header[f.clusterOffset:]
}

// Release drops the frame's buffers once its content has been transmitted.
// Only buffers the frame owns are affected; a borrowed payload is merely
// forgotten. Releasing a frame that is still pending is refused.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.elem != nil {
		log.Warn("Refusing to release pending frame at %d ms", f.in.TimestampMs)
		return
	}
	f.header = nil
	f.clusterOffset = 0
	f.in.Data = nil
	f.ownsData = false
	f.blockLen = 0
}
