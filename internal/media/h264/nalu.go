package h264

// NAL unit types, ITU-T H.264 Table 7-1.
const (
	TypeSlice = 1
	TypeIDR   = 5
	TypeSEI   = 6
	TypeSPS   = 7
	TypePPS   = 8
	TypeAUD   = 9
)

type NALU []byte

func (nalu NALU) ForbiddenBit() byte {
	return nalu[0] & 0x80 >> 7
}

func (nalu NALU) NRI() byte {
	return nalu[0] & 0x60 >> 5
}

func (nalu NALU) Type() byte {
	return nalu[0] & 0x1f
}

// Whether the NAL unit carries coded slice data.
func (nalu NALU) IsVCL() bool {
	t := nalu.Type()
	return t >= TypeSlice && t <= TypeIDR
}

// Whether this slice is the first of its picture, i.e. first_mb_in_slice is
// 0. As an Exp-Golomb code, 0 is a single 1 bit.
func (nalu NALU) FirstSliceInPicture() bool {
	return nalu.IsVCL() && len(nalu) > 1 && nalu[1]&0x80 != 0
}
