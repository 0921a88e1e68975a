package main

import (
	"io"

	"github.com/lanikai/alohakvs"
	"github.com/lanikai/alohakvs/internal/config"
	"github.com/lanikai/alohakvs/internal/media"
	"github.com/lanikai/alohakvs/internal/mkv"
)

// frameSource yields the frames of one track in timestamp order.
type frameSource interface {
	// Next returns the next frame, or io.EOF.
	Next() (alohakvs.DataFrameIn, error)
}

type videoSource struct {
	r       *media.H264Reader
	first   *media.AccessUnit
	startMs uint64
	fps     uint64
	count   uint64
}

// Open an H.264 source, reading up to its first key frame to learn the track
// parameters.
func openVideo(in io.Reader, name string, fps int, startMs uint64) (*videoSource, *alohakvs.VideoTrackInfo, error) {
	r := media.NewH264Reader(in)
	first, err := r.ReadFirstKeyFrame()
	if err != nil {
		return nil, nil, err
	}
	track, err := mkv.NewH264Track(name, r.SPS, r.PPS)
	if err != nil {
		return nil, nil, err
	}
	return &videoSource{r: r, first: first, startMs: startMs, fps: uint64(fps)}, track, nil
}

func (s *videoSource) Next() (alohakvs.DataFrameIn, error) {
	au := s.first
	s.first = nil
	if au == nil {
		var err error
		if au, err = s.r.ReadAccessUnit(); err != nil {
			return alohakvs.DataFrameIn{}, err
		}
	}

	ts := s.startMs + s.count*1000/s.fps
	s.count++

	cluster := alohakvs.SimpleBlock
	if au.KeyFrame {
		cluster = alohakvs.ClusterHead
	}
	return alohakvs.DataFrameIn{
		Data:        au.AVCC(),
		TimestampMs: ts,
		Track:       alohakvs.TrackVideo,
		Cluster:     cluster,
		KeyFrame:    au.KeyFrame,
	}, nil
}

type aacSource struct {
	r       *media.ADTSReader
	first   *media.AACFrame
	startMs uint64
	rate    uint64
	samples uint64
}

func (s *aacSource) Next() (alohakvs.DataFrameIn, error) {
	f := s.first
	s.first = nil
	if f == nil {
		var err error
		if f, err = s.r.ReadFrame(); err != nil {
			return alohakvs.DataFrameIn{}, err
		}
	}

	ts := s.startMs + s.samples*1000/s.rate
	s.samples += uint64(f.Samples)
	return audioFrame(f.Data, ts), nil
}

// Raw G.711 samples, cut into 20 ms frames.
type g711Source struct {
	in       io.Reader
	startMs  uint64
	rate     uint64
	channels int
	samples  uint64
}

func (s *g711Source) Next() (alohakvs.DataFrameIn, error) {
	buf := make([]byte, int(s.rate)/50*s.channels)
	n, err := io.ReadFull(s.in, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil {
		return alohakvs.DataFrameIn{}, err
	}

	ts := s.startMs + s.samples*1000/s.rate
	s.samples += uint64(n / s.channels)
	return audioFrame(buf[:n], ts), nil
}

func audioFrame(data []byte, ts uint64) alohakvs.DataFrameIn {
	return alohakvs.DataFrameIn{
		Data:        data,
		TimestampMs: ts,
		Track:       alohakvs.TrackAudio,
		Cluster:     alohakvs.SimpleBlock,
		KeyFrame:    true,
	}
}

func openAudio(in io.Reader, cfg config.AudioConfig, startMs uint64) (frameSource, *alohakvs.AudioTrackInfo, error) {
	switch cfg.Codec {
	case config.AudioCodecG711:
		track, err := mkv.NewPCMTrack(cfg.TrackName, mkv.PCMFormatALaw, cfg.Frequency, cfg.Channels)
		if err != nil {
			return nil, nil, err
		}
		return &g711Source{
			in:       in,
			startMs:  startMs,
			rate:     uint64(cfg.Frequency),
			channels: cfg.Channels,
		}, track, nil

	default:
		// The ADTS headers describe the stream; the configured rate and
		// channel count are only checked against them.
		r := media.NewADTSReader(in)
		first, err := r.ReadFrame()
		if err != nil {
			return nil, nil, err
		}
		track, err := mkv.NewAACTrackFromConfig(cfg.TrackName, first.Config)
		if err != nil {
			return nil, nil, err
		}
		if track.Frequency != cfg.Frequency || track.Channels != cfg.Channels {
			log.Warn("AAC input is %d Hz, %d channels; configured for %d Hz, %d channels",
				track.Frequency, track.Channels, cfg.Frequency, cfg.Channels)
		}
		return &aacSource{
			r:       r,
			first:   first,
			startMs: startMs,
			rate:    uint64(track.Frequency),
		}, track, nil
	}
}
