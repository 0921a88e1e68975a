package mkv

import (
	"encoding/binary"

	"github.com/nareix/joy4/codec/aacparser"
	"github.com/nareix/joy4/codec/h264parser"
	"github.com/pkg/errors"
)

// NewH264Track builds a video track from the stream's SPS and PPS NAL units.
// Geometry comes from the SPS; CodecPrivate is the AVCDecoderConfigurationRecord.
func NewH264Track(name string, sps, pps []byte) (*VideoTrackInfo, error) {
	cd, err := h264parser.NewCodecDataFromSPSAndPPS(sps, pps)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidTrack, err.Error())
	}
	log.Debug("H.264 track %q: %dx%d", name, cd.Width(), cd.Height())
	return &VideoTrackInfo{
		Name:         name,
		CodecID:      CodecIDH264,
		Width:        cd.Width(),
		Height:       cd.Height(),
		CodecPrivate: cd.AVCDecoderConfRecordBytes(),
	}, nil
}

// NewAACTrack builds an AAC-LC audio track. CodecPrivate is the
// AudioSpecificConfig.
func NewAACTrack(name string, sampleRate, channels int) (*AudioTrackInfo, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.Wrapf(ErrInvalidTrack, "invalid AAC config %d Hz, %d channels", sampleRate, channels)
	}
	return NewAACTrackFromConfig(name, aacparser.MPEG4AudioConfig{
		ObjectType:    aacparser.AOT_AAC_LC,
		SampleRate:    sampleRate,
		ChannelConfig: uint(channels),
	})
}

// NewAACTrackFromConfig builds an audio track from a parsed config, e.g. one
// taken from an ADTS header.
func NewAACTrackFromConfig(name string, config aacparser.MPEG4AudioConfig) (*AudioTrackInfo, error) {
	cd, err := aacparser.NewCodecDataFromMPEG4AudioConfig(config)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidTrack, err.Error())
	}
	return &AudioTrackInfo{
		Name:          name,
		CodecID:       CodecIDAAC,
		Frequency:     cd.SampleRate(),
		Channels:      cd.ChannelLayout().Count(),
		BitsPerSample: 16,
		CodecPrivate:  cd.MPEG4AudioConfigBytes(),
	}, nil
}

// WAVE format codes for A_MS/ACM tracks.
const (
	PCMFormatALaw  = 6
	PCMFormatMuLaw = 7
)

// NewPCMTrack builds a G.711 audio track. CodecPrivate is a WAVEFORMATEX
// structure, which is little-endian.
func NewPCMTrack(name string, formatCode uint16, sampleRate, channels int) (*AudioTrackInfo, error) {
	if formatCode != PCMFormatALaw && formatCode != PCMFormatMuLaw {
		return nil, errors.Wrapf(ErrInvalidTrack, "unsupported PCM format code %d", formatCode)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.Wrapf(ErrInvalidTrack, "invalid PCM config %d Hz, %d channels", sampleRate, channels)
	}

	const bitsPerSample = 8
	blockAlign := channels * bitsPerSample / 8

	private := make([]byte, 18)
	le := binary.LittleEndian
	le.PutUint16(private[0:], formatCode)
	le.PutUint16(private[2:], uint16(channels))
	le.PutUint32(private[4:], uint32(sampleRate))
	le.PutUint32(private[8:], uint32(sampleRate*blockAlign))
	le.PutUint16(private[12:], uint16(blockAlign))
	le.PutUint16(private[14:], bitsPerSample)
	// cbSize stays 0.

	return &AudioTrackInfo{
		Name:          name,
		CodecID:       CodecIDPCM,
		Frequency:     sampleRate,
		Channels:      channels,
		BitsPerSample: bitsPerSample,
		CodecPrivate:  private,
	}, nil
}
