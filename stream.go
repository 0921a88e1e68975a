// Package alohakvs buffers timestamped audio and video frames for a
// Matroska streaming producer. A Stream keeps pending frames in transmission
// order and keeps every frame's cluster header consistent with the frames
// around it, so frames can be popped and written out one at a time.
package alohakvs

import (
	"container/list"
	"sync"
	"unsafe"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/alohakvs/internal/logging"
	"github.com/lanikai/alohakvs/internal/mkv"
)

var log = logging.DefaultLogger.WithTag("stream")

// Fixed bookkeeping cost counted by MemStatTotal.
const (
	streamOverhead = int(unsafe.Sizeof(Stream{}))
	frameOverhead  = int(unsafe.Sizeof(Frame{}) + unsafe.Sizeof(list.Element{}))
)

// Stream holds the frames of one Matroska session waiting to be sent, in
// transmission order, with headers rendered for that order. All methods are
// safe for concurrent use.
type Stream struct {
	// Guards everything below, and the header and payload of every frame
	// created by this stream.
	mu sync.Mutex

	codec HeaderCodec

	// EBML and Segment preamble. Immutable after creation.
	segmentHeader []byte

	// Timestamp of the most recently popped cluster head. Delta timestamps of
	// frames with no cluster head ahead of them are relative to this.
	earliestClusterTimestamp uint64

	// Pending *Frame, sorted by timestamp. At equal timestamps video frames
	// come first.
	pending *list.List

	hasVideoTrack bool
	hasAudioTrack bool

	tags tagInjector

	closed bool

	enqueued    uint64
	dequeued    uint64
	corrections uint64
}

// NewStream creates a stream for the given tracks and renders its segment
// header.
func NewStream(cfg Config) (*Stream, error) {
	if cfg.Video == nil {
		return nil, errors.Errorf("video track is required: %w", ErrInvalidArgument)
	}

	codec := cfg.Codec
	if codec == nil {
		codec = mkv.DefaultCodec
	}

	segmentHeader, err := codec.SegmentHeader(cfg.Video, cfg.Audio)
	if err != nil {
		log.Error("Failed to initialize mkv headers: %v", err)
		return nil, errors.Errorf("%v: %w", err, ErrMkvInit)
	}

	s := &Stream{
		codec:         codec,
		segmentHeader: segmentHeader,
		pending:       list.New(),
		hasVideoTrack: true,
		hasAudioTrack: cfg.Audio != nil,
	}
	s.tags.init(cfg.TagCacheSize)
	return s, nil
}

// Close releases the segment header. Pending frames are not released: the
// caller is expected to drain the stream first, and ErrNotDrained is
// returned if it did not. Any further use of the stream fails with ErrLock.
func (s *Stream) Close() error {
	if s == nil {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLock
	}

	s.closed = true
	s.segmentHeader = nil
	s.tags.reset()

	if n := s.pending.Len(); n > 0 {
		log.Error("Stream closed with %d frames pending", n)
		return errors.Errorf("%d frames: %w", n, ErrNotDrained)
	}
	return nil
}

// SegmentHeader returns the EBML and Segment preamble that precedes all
// frames. The returned slice must not be modified.
func (s *Stream) SegmentHeader() ([]byte, error) {
	if s == nil {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrLock
	}
	if len(s.segmentHeader) == 0 {
		log.Error("Mkv EBML and segment are not initialized")
		return nil, ErrNotInitialized
	}
	return s.segmentHeader, nil
}

// AddFrame inserts a frame in timestamp order and renders its header. If the
// frame is a cluster head inserted ahead of other frames, the headers of the
// frames it now governs are rendered again.
//
// The returned frame remains owned by the stream until it is popped.
func (s *Stream) AddFrame(in DataFrameIn) (*Frame, error) {
	if s == nil {
		return nil, ErrInvalidArgument
	}
	if in.Track != TrackVideo && in.Track != TrackAudio {
		return nil, errors.Errorf("track type %d: %w", in.Track, ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrLock
	}
	if in.Track == TrackAudio && !s.hasAudioTrack {
		return nil, errors.Errorf("stream has no audio track: %w", ErrInvalidArgument)
	}

	n := s.codec.ClusterHeaderLen(in.Cluster)
	if n <= 0 {
		log.Error("Invalid cluster len for %v", in.Cluster)
		return nil, errors.Errorf("cluster type %d: %w", in.Cluster, ErrInvalidClusterHeaderLen)
	}

	f := &Frame{
		in:       in,
		blockLen: len(in.Data),
		header:   make([]byte, n),
		mu:       &s.mu,
	}

	// Find the first frame the new one sorts before, tracking the timecode
	// of the cluster it will belong to.
	clusterTimestamp := s.earliestClusterTimestamp
	var next *list.Element
	for e := s.pending.Front(); e != nil; e = e.Next() {
		cur := e.Value.(*Frame)
		if in.TimestampMs < cur.in.TimestampMs ||
			(in.TimestampMs == cur.in.TimestampMs && in.Track == TrackVideo) {
			next = e
			break
		}
		if cur.in.Cluster == ClusterHead {
			clusterTimestamp = cur.in.TimestampMs
		}
	}

	delta := uint16(in.TimestampMs - clusterTimestamp)
	needCorrection := false
	if in.Cluster == ClusterHead {
		delta = 0
		// Frames after this one now belong to its cluster.
		needCorrection = next != nil
	}

	if err := s.codec.RenderClusterHeader(f.header, f.headerInfo(delta)); err != nil {
		log.Error("Failed to render header for frame at %d ms: %v", in.TimestampMs, err)
		return nil, errors.Errorf("render header: %w", err)
	}

	if next != nil {
		f.elem = s.pending.InsertBefore(f, next)
	} else {
		f.elem = s.pending.PushBack(f)
	}

	if needCorrection {
		if err := s.correctDeltaTimestamps(); err != nil {
			s.pending.Remove(f.elem)
			f.elem = nil
			return nil, err
		}
	}

	s.enqueued++
	return f, nil
}

func (f *Frame) headerInfo(delta uint16) mkv.ClusterHeader {
	return mkv.ClusterHeader{
		Cluster:     f.in.Cluster,
		Track:       f.in.Track,
		KeyFrame:    f.in.KeyFrame,
		DataLen:     f.blockLen,
		TimestampMs: f.in.TimestampMs,
		DeltaMs:     delta,
	}
}

// Re-render every header from the first cluster head onwards against the
// cluster head that precedes it. Frames ahead of the first cluster head are
// relative to the baseline and keep their headers.
//
// Headers are rendered into scratch buffers and only copied into place once
// all of them succeeded, so a failure leaves every frame untouched.
func (s *Stream) correctDeltaTimestamps() error {
	type update struct {
		f      *Frame
		header []byte
	}
	var updates []update

	started := false
	var clusterTimestamp uint64
	for e := s.pending.Front(); e != nil; e = e.Next() {
		cur := e.Value.(*Frame)
		if cur.in.Cluster == ClusterHead {
			clusterTimestamp = cur.in.TimestampMs
			started = true
		}
		if !started {
			continue
		}

		delta := uint16(cur.in.TimestampMs - clusterTimestamp)
		header := make([]byte, len(cur.clusterHeader()))
		if err := s.codec.RenderClusterHeader(header, cur.headerInfo(delta)); err != nil {
			log.Error("Failed to correct header for frame at %d ms: %v", cur.in.TimestampMs, err)
			return errors.Errorf("correct delta timestamp: %w", err)
		}
		updates = append(updates, update{cur, header})
	}

	for _, u := range updates {
		copy(u.f.clusterHeader(), u.header)
	}
	s.corrections++
	log.Debug("Corrected %d frame headers", len(updates))
	return nil
}

// Pop removes and returns the first pending frame, or nil if there is none.
func (s *Stream) Pop() (*Frame, error) {
	return s.pop(false)
}

// Peek returns the first pending frame without removing it, or nil if there
// is none.
func (s *Stream) Peek() (*Frame, error) {
	return s.pop(true)
}

func (s *Stream) pop(peek bool) (*Frame, error) {
	if s == nil {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrLock
	}

	e := s.pending.Front()
	if e == nil {
		return nil, nil
	}
	f := e.Value.(*Frame)
	if peek {
		return f, nil
	}

	s.pending.Remove(e)
	f.elem = nil
	if f.in.Cluster == ClusterHead {
		s.earliestClusterTimestamp = f.in.TimestampMs
	}
	s.dequeued++
	return f, nil
}

// IsEmpty reports whether no frames are pending. A closed stream is empty.
func (s *Stream) IsEmpty() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Error("IsEmpty on closed stream")
		return true
	}
	return s.pending.Len() == 0
}

// Len returns the number of pending frames, or 0 once the stream is closed.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Error("Len on closed stream")
		return 0
	}
	return s.pending.Len()
}

// AvailableOnTrack reports whether any pending frame belongs to the track.
func (s *Stream) AvailableOnTrack(track TrackType) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Error("AvailableOnTrack on closed stream")
		return false
	}
	for e := s.pending.Front(); e != nil; e = e.Next() {
		if e.Value.(*Frame).in.Track == track {
			return true
		}
	}
	return false
}

// MemStatTotal returns the memory held by the stream: fixed overhead, the
// segment header, and every pending frame's payload and header. The stream
// does not enforce any limit on it.
func (s *Stream) MemStatTotal() (int, error) {
	if s == nil {
		return 0, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrLock
	}
	return s.memTotal(), nil
}

func (s *Stream) memTotal() int {
	total := streamOverhead + len(s.segmentHeader)
	for e := s.pending.Front(); e != nil; e = e.Next() {
		f := e.Value.(*Frame)
		total += len(f.in.Data) + len(f.header) + frameOverhead
	}
	return total
}
