package media

import (
	"io"

	"github.com/nareix/joy4/codec/aacparser"
)

const adtsHeaderLen = 7

// AACFrame is one raw AAC frame taken out of its ADTS wrapper.
type AACFrame struct {
	Data    []byte
	Samples int
	Config  aacparser.MPEG4AudioConfig
}

// ADTSReader reads AAC frames from an ADTS byte stream.
type ADTSReader struct {
	in io.Reader
}

func NewADTSReader(in io.Reader) *ADTSReader {
	return &ADTSReader{in}
}

// ReadFrame returns the next frame, or io.EOF.
func (r *ADTSReader) ReadFrame() (*AACFrame, error) {
	hdr := make([]byte, adtsHeaderLen)
	if _, err := io.ReadFull(r.in, hdr); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errShortADTS
		}
		return nil, err
	}

	config, hdrlen, framelen, samples, err := aacparser.ParseADTSHeader(hdr)
	if err != nil {
		return nil, err
	}
	if framelen < hdrlen {
		return nil, errShortADTS
	}

	frame := make([]byte, framelen)
	copy(frame, hdr)
	if _, err := io.ReadFull(r.in, frame[adtsHeaderLen:]); err != nil {
		return nil, errShortADTS
	}

	config.Complete()
	return &AACFrame{
		Data:    frame[hdrlen:],
		Samples: samples,
		Config:  config,
	}, nil
}
