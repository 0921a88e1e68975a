//////////////////////////////////////////////////////////////////////////////
//
// Media errors
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import "errors"

var (
	errNoParameterSets = errors.New("no SPS/PPS before first key frame")
	errShortADTS       = errors.New("truncated ADTS frame")
)
