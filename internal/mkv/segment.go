package mkv

import (
	"bytes"

	"github.com/at-wat/ebml-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// VideoTrackInfo describes the mandatory video track.
type VideoTrackInfo struct {
	Name    string
	CodecID string
	Width   int
	Height  int

	// Codec specific initialization data, e.g. an AVCDecoderConfigurationRecord.
	CodecPrivate []byte
}

// AudioTrackInfo describes the optional audio track.
type AudioTrackInfo struct {
	Name          string
	CodecID       string
	Frequency     int
	Channels      int
	BitsPerSample int

	CodecPrivate []byte
}

func (v *VideoTrackInfo) validate() error {
	switch {
	case v.Name == "":
		return errors.Wrap(ErrInvalidTrack, "video track has no name")
	case v.CodecID == "":
		return errors.Wrap(ErrInvalidTrack, "video track has no codec ID")
	case v.Width <= 0 || v.Height <= 0:
		return errors.Wrapf(ErrInvalidTrack, "invalid video geometry %dx%d", v.Width, v.Height)
	}
	return nil
}

func (a *AudioTrackInfo) validate() error {
	switch {
	case a.Name == "":
		return errors.Wrap(ErrInvalidTrack, "audio track has no name")
	case a.CodecID == "":
		return errors.Wrap(ErrInvalidTrack, "audio track has no codec ID")
	case a.Frequency <= 0:
		return errors.Wrapf(ErrInvalidTrack, "invalid audio frequency %d", a.Frequency)
	case a.Channels <= 0:
		return errors.Wrapf(ErrInvalidTrack, "invalid audio channel count %d", a.Channels)
	}
	return nil
}

type ebmlHeader struct {
	EBMLVersion            uint64
	EBMLReadVersion        uint64
	EBMLMaxIDLength        uint64
	EBMLMaxSizeLength      uint64
	EBMLDocType            string
	EBMLDocTypeVersion     uint64
	EBMLDocTypeReadVersion uint64
}

type segmentInfo struct {
	TimecodeScale uint64
	SegmentUID    []byte
	MuxingApp     string
	WritingApp    string
}

type videoSettings struct {
	PixelWidth  uint64
	PixelHeight uint64
}

type audioSettings struct {
	SamplingFrequency float64
	Channels          uint64
	BitDepth          uint64 `ebml:",omitempty"`
}

type trackEntry struct {
	TrackNumber  uint64
	TrackUID     uint64
	TrackType    uint64
	Name         string
	CodecID      string
	CodecPrivate []byte          `ebml:",omitempty"`
	Video        []videoSettings `ebml:",omitempty"`
	Audio        []audioSettings `ebml:",omitempty"`
}

type segmentTracks struct {
	TrackEntry []trackEntry
}

// The segment is left open (unknown size) so clusters can follow it
// indefinitely.
type segment struct {
	Info   segmentInfo
	Tracks segmentTracks
}

type preamble struct {
	Header  ebmlHeader `ebml:"EBML"`
	Segment segment    `ebml:",size=unknown"`
}

func (c *Codec) segmentHeader(video *VideoTrackInfo, audio *AudioTrackInfo) ([]byte, error) {
	if video == nil {
		return nil, errors.Wrap(ErrInvalidTrack, "video track is required")
	}
	if err := video.validate(); err != nil {
		return nil, err
	}

	tracks := []trackEntry{{
		TrackNumber:  TrackVideo.number(),
		TrackUID:     TrackVideo.number(),
		TrackType:    TrackVideo.number(),
		Name:         video.Name,
		CodecID:      video.CodecID,
		CodecPrivate: video.CodecPrivate,
		Video: []videoSettings{{
			PixelWidth:  uint64(video.Width),
			PixelHeight: uint64(video.Height),
		}},
	}}

	if audio != nil {
		if err := audio.validate(); err != nil {
			return nil, err
		}
		tracks = append(tracks, trackEntry{
			TrackNumber:  TrackAudio.number(),
			TrackUID:     TrackAudio.number(),
			TrackType:    TrackAudio.number(),
			Name:         audio.Name,
			CodecID:      audio.CodecID,
			CodecPrivate: audio.CodecPrivate,
			Audio: []audioSettings{{
				SamplingFrequency: float64(audio.Frequency),
				Channels:          uint64(audio.Channels),
				BitDepth:          uint64(audio.BitsPerSample),
			}},
		})
	}

	uid := c.segmentUID()
	p := preamble{
		Header: ebmlHeader{
			EBMLVersion:            1,
			EBMLReadVersion:        1,
			EBMLMaxIDLength:        4,
			EBMLMaxSizeLength:      8,
			EBMLDocType:            "matroska",
			EBMLDocTypeVersion:     2,
			EBMLDocTypeReadVersion: 2,
		},
		Segment: segment{
			Info: segmentInfo{
				TimecodeScale: TimecodeScale,
				SegmentUID:    uid[:],
				MuxingApp:     c.appName(),
				WritingApp:    c.appName(),
			},
			Tracks: segmentTracks{TrackEntry: tracks},
		},
	}

	var buf bytes.Buffer
	if err := ebml.Marshal(&p, &buf); err != nil {
		return nil, errors.Wrap(ErrEncoding, err.Error())
	}
	log.Debug("Segment header: %d bytes, %d tracks", buf.Len(), len(tracks))
	return buf.Bytes(), nil
}

func (c *Codec) segmentUID() uuid.UUID {
	if c.NewSegmentUID != nil {
		return c.NewSegmentUID()
	}
	return uuid.New()
}
