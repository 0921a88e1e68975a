package mkv

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lanikai/alohakvs/internal/packet"
)

// ClusterHeader describes one rendered cluster or simple-block header.
type ClusterHeader struct {
	Cluster     ClusterType
	Track       TrackType
	KeyFrame    bool
	DataLen     int
	TimestampMs uint64

	// Delta from the enclosing cluster's timecode, truncated to the width of
	// the encoded field.
	DeltaMs uint16
}

// Length of the header rendered for the given cluster type, or 0 if the type
// is not recognized.
func HeaderLen(c ClusterType) int {
	switch c {
	case ClusterHead:
		return ClusterHeaderLen
	case SimpleBlock:
		return SimpleBlockHeaderLen
	default:
		return 0
	}
}

// RenderClusterHeader fills buf, which must be exactly HeaderLen(h.Cluster)
// bytes long.
func RenderClusterHeader(buf []byte, h ClusterHeader) error {
	n := HeaderLen(h.Cluster)
	if n == 0 {
		return errors.Wrapf(ErrEncoding, "unknown cluster type %d", h.Cluster)
	}
	if len(buf) != n {
		return errors.Wrapf(ErrEncoding, "%v header needs %d bytes, buffer has %d", h.Cluster, n, len(buf))
	}
	if h.Track != TrackVideo && h.Track != TrackAudio {
		return errors.Wrapf(ErrEncoding, "unknown track type %d", h.Track)
	}
	if h.DataLen < 0 || uint64(h.DataLen)+4 >= 1<<56-1 {
		return errors.Wrapf(ErrEncoding, "invalid data length %d", h.DataLen)
	}

	w := packet.NewWriter(buf)
	if h.Cluster == ClusterHead {
		w.WriteID(idCluster)
		w.WriteUnknownSize(8)
		w.WriteID(idTimecode)
		w.WriteVint(8, 1)
		w.WriteUint64(h.TimestampMs)
	}
	w.WriteID(idSimpleBlock)
	w.WriteVint(uint64(h.DataLen)+4, 8)
	w.WriteVint(h.Track.number(), 1)
	w.WriteUint16(h.DeltaMs)
	var flags byte
	if h.KeyFrame {
		flags |= keyFrameFlag
	}
	w.WriteByte(flags)
	return nil
}

// ParseClusterHeader decodes a header produced by RenderClusterHeader. For a
// simple block, TimestampMs is left at zero since only the delta is encoded.
func ParseClusterHeader(b []byte) (h ClusterHeader, err error) {
	r := packet.NewReader(b)
	id, err := r.ReadID()
	if err != nil {
		return h, errors.Wrap(ErrMalformed, err.Error())
	}

	h.Cluster = SimpleBlock
	if id == idCluster {
		h.Cluster = ClusterHead
		if _, _, err = r.ReadVint(); err != nil {
			return h, errors.Wrap(ErrMalformed, err.Error())
		}
		if id, err = r.ReadID(); err != nil || id != idTimecode {
			return h, errors.Wrap(ErrMalformed, "missing cluster timecode")
		}
		size, _, err := r.ReadVint()
		if err != nil || size != 8 || r.CheckRemaining(8) != nil {
			return h, errors.Wrap(ErrMalformed, "bad cluster timecode size")
		}
		h.TimestampMs = r.ReadUint64()
		if id, err = r.ReadID(); err != nil {
			return h, errors.Wrap(ErrMalformed, err.Error())
		}
	}
	if id != idSimpleBlock {
		return h, errors.Wrapf(ErrMalformed, "unexpected element %x", id)
	}

	size, _, err := r.ReadVint()
	if err != nil || size < 4 || size > math.MaxInt32 {
		return h, errors.Wrap(ErrMalformed, "bad simple block size")
	}
	h.DataLen = int(size) - 4

	track, _, err := r.ReadVint()
	if err != nil {
		return h, errors.Wrap(ErrMalformed, err.Error())
	}
	h.Track = TrackType(track)

	if err = r.CheckRemaining(3); err != nil {
		return h, errors.Wrap(ErrMalformed, err.Error())
	}
	h.DeltaMs = r.ReadUint16()
	h.KeyFrame = r.ReadByte()&keyFrameFlag != 0
	return h, nil
}
