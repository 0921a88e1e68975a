package main

import (
	"context"
	"io"
	"time"

	"github.com/lanikai/alohakvs"
	"github.com/lanikai/alohakvs/internal/metrics"
)

// pipeline moves frames from the sources through a Stream to an output.
type pipeline struct {
	stream  *alohakvs.Stream
	metrics *metrics.Metrics

	// Tags written at every fragment boundary and after the final frame.
	tags []alohakvs.Tag

	// Drop the oldest frames when the stream holds more than this. 0 never
	// drops.
	memLimit int

	// Pace input at the source rate, starting from wallStart.
	realtime  bool
	startMs   uint64
	wallStart time.Time

	// Signalled after each added frame.
	wake chan struct{}

	// Closed once the sources are exhausted.
	eof chan struct{}
}

func newPipeline(stream *alohakvs.Stream, m *metrics.Metrics, startMs uint64) *pipeline {
	return &pipeline{
		stream:    stream,
		metrics:   m,
		startMs:   startMs,
		wallStart: time.Now(),
		wake:      make(chan struct{}, 1),
		eof:       make(chan struct{}),
	}
}

// Merge the sources by timestamp into the stream. Video wins ties, matching
// the stream's own ordering.
func (p *pipeline) produce(ctx context.Context, sources ...frameSource) error {
	defer close(p.eof)

	heads := make([]*alohakvs.DataFrameIn, len(sources))
	next := func(i int) error {
		in, err := sources[i].Next()
		if err == io.EOF {
			heads[i] = nil
			return nil
		}
		if err != nil {
			return err
		}
		heads[i] = &in
		return nil
	}
	for i := range sources {
		if err := next(i); err != nil {
			return err
		}
	}

	for {
		pick := -1
		for i, h := range heads {
			if h == nil {
				continue
			}
			if pick < 0 || h.TimestampMs < heads[pick].TimestampMs ||
				(h.TimestampMs == heads[pick].TimestampMs && h.Track == alohakvs.TrackVideo) {
				pick = i
			}
		}
		if pick < 0 {
			log.Info("End of input")
			return nil
		}

		in := *heads[pick]
		if err := p.pace(ctx, in.TimestampMs); err != nil {
			return err
		}
		if err := p.add(in); err != nil {
			return err
		}
		if err := next(pick); err != nil {
			return err
		}
	}
}

func (p *pipeline) pace(ctx context.Context, ts uint64) error {
	if err := ctx.Err(); err != nil || !p.realtime {
		return err
	}
	due := p.wallStart.Add(time.Duration(ts-p.startMs) * time.Millisecond)
	t := time.NewTimer(time.Until(due))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeline) add(in alohakvs.DataFrameIn) error {
	if _, err := p.stream.AddFrame(in); err != nil {
		return err
	}
	p.metrics.AddFramesRead(1)
	if err := p.trim(); err != nil {
		return err
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Drop the oldest frames until the stream fits the memory limit.
func (p *pipeline) trim() error {
	if p.memLimit <= 0 {
		return nil
	}
	for {
		total, err := p.stream.MemStatTotal()
		if err != nil {
			return err
		}
		if total <= p.memLimit {
			return nil
		}
		f, err := p.stream.Pop()
		if err != nil || f == nil {
			return err
		}
		log.Warn("Buffer at %d bytes, dropping %v frame at %d ms", total, f.Track(), f.Timestamp())
		f.Release()
		p.metrics.AddFramesDropped(1)
	}
}

// Write the segment header and then every frame as it becomes available.
// The most recent frame is held back so the final one can carry the trailing
// tags.
func (p *pipeline) consume(ctx context.Context, w io.Writer) error {
	seg, err := p.stream.SegmentHeader()
	if err != nil {
		return err
	}
	if err := p.write(w, seg); err != nil {
		return err
	}

	var last *alohakvs.Frame
	for {
		f, err := p.stream.Pop()
		if err != nil {
			return err
		}
		if f == nil {
			select {
			case <-p.wake:
				continue
			case <-p.eof:
				// Frames may have arrived since the Pop above.
				if !p.stream.IsEmpty() {
					continue
				}
				return p.finish(w, last)
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if last != nil {
			header, data, err := p.stream.AddTags(last, p.tags, false)
			if err != nil {
				return err
			}
			if err := p.write(w, header, data); err != nil {
				return err
			}
			last.Release()
		}
		last = f
	}
}

func (p *pipeline) finish(w io.Writer, last *alohakvs.Frame) error {
	if last == nil {
		return nil
	}
	defer last.Release()
	if _, _, err := p.stream.AddTags(last, p.tags, false); err != nil {
		return err
	}
	header, data, err := p.stream.AddTrailingTags(last, p.tags)
	if err != nil {
		return err
	}
	return p.write(w, header, data)
}

func (p *pipeline) write(w io.Writer, bufs ...[]byte) error {
	for _, b := range bufs {
		n, err := w.Write(b)
		p.metrics.AddBytesWritten(uint64(n))
		if err != nil {
			return err
		}
	}
	return nil
}
