package media

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lanikai/alohakvs/internal/media/h264"
)

const (
	naluBufferInitialSize = 16 * 1024
	naluBufferMaximumSize = 4 * 1024 * 1024
)

var h264StartCode = []byte{0, 0, 1}

var h264StartCode4 = []byte{0, 0, 0, 1}

// Splits NAL units on H.264 Annex B start codes. A leading start code is
// skipped and the NAL unit after it returned in the same call, so buffered
// units are never left behind once the reader hits EOF.
func splitNALU(data []byte, atEOF bool) (advance int, nalu []byte, err error) {
	skip := 0
	if bytes.HasPrefix(data, h264StartCode4) {
		skip = 4
	} else if bytes.HasPrefix(data, h264StartCode) {
		skip = 3
	}
	rest := data[skip:]

	i := bytes.Index(rest, h264StartCode)
	if i == -1 {
		if !atEOF {
			// No start code found. Wait for more data.
			return 0, nil, nil
		}
		if len(data) == 0 {
			return 0, nil, nil
		}
		// Final NAL unit, not followed by a start code.
		return len(data), trimNALU(rest), nil
	}
	return skip + i, trimNALU(rest[:i]), nil
}

// Zero bytes before a start code belong to it (4-byte form) or are
// trailing_zero_8bits, never to the NAL unit. The result is non-nil, since a
// nil token makes the scanner stop at EOF.
func trimNALU(b []byte) []byte {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return b[:n]
}

// AccessUnit is one coded picture and the non-VCL NAL units sent with it.
type AccessUnit struct {
	NALUs    []h264.NALU
	KeyFrame bool
}

// AVCC returns the access unit with each NAL unit prefixed by its 4-byte
// length, as Matroska's V_MPEG4/ISO/AVC expects. Delimiters are dropped.
func (au *AccessUnit) AVCC() []byte {
	n := 0
	for _, nalu := range au.NALUs {
		n += 4 + len(nalu)
	}
	out := make([]byte, 0, n)
	var size [4]byte
	for _, nalu := range au.NALUs {
		if nalu.Type() == h264.TypeAUD {
			continue
		}
		binary.BigEndian.PutUint32(size[:], uint32(len(nalu)))
		out = append(out, size[:]...)
		out = append(out, nalu...)
	}
	return out
}

// H264Reader groups an Annex B byte stream into access units.
type H264Reader struct {
	scanner *bufio.Scanner

	// NAL unit read past the end of the previous access unit.
	lookahead h264.NALU

	// Most recent parameter sets.
	SPS []byte
	PPS []byte
}

func NewH264Reader(in io.Reader) *H264Reader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, naluBufferInitialSize), naluBufferMaximumSize)
	scanner.Split(splitNALU)
	return &H264Reader{scanner: scanner}
}

func (r *H264Reader) readNALU() (h264.NALU, error) {
	if nalu := r.lookahead; nalu != nil {
		r.lookahead = nil
		return nalu, nil
	}
	for r.scanner.Scan() {
		b := r.scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		// The scanner reuses its buffer.
		return h264.NALU(append([]byte(nil), b...)), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAccessUnit returns the next access unit, or io.EOF.
func (r *H264Reader) ReadAccessUnit() (*AccessUnit, error) {
	au := &AccessUnit{}
	sawVCL := false
	for {
		nalu, err := r.readNALU()
		if err == io.EOF && sawVCL {
			return au, nil
		}
		if err != nil {
			return nil, err
		}

		// A new picture starts with non-VCL units or a first slice.
		if sawVCL && (!nalu.IsVCL() || nalu.FirstSliceInPicture()) {
			r.lookahead = nalu
			return au, nil
		}

		switch nalu.Type() {
		case h264.TypeSPS:
			r.SPS = nalu
		case h264.TypePPS:
			r.PPS = nalu
		case h264.TypeIDR:
			au.KeyFrame = true
		}
		if nalu.IsVCL() {
			sawVCL = true
		}
		au.NALUs = append(au.NALUs, nalu)
	}
}

// ReadFirstKeyFrame skips ahead to the first key frame, which must be
// preceded by the parameter sets.
func (r *H264Reader) ReadFirstKeyFrame() (*AccessUnit, error) {
	for {
		au, err := r.ReadAccessUnit()
		if err != nil {
			return nil, err
		}
		if !au.KeyFrame {
			log.Debug("Skipping access unit before first key frame")
			continue
		}
		if r.SPS == nil || r.PPS == nil {
			return nil, errNoParameterSets
		}
		return au, nil
	}
}
