package mkv

import "github.com/pkg/errors"

var (
	ErrEncoding     = errors.New("mkv: encoding error")
	ErrInvalidTrack = errors.New("mkv: invalid track info")
	ErrInvalidTag   = errors.New("mkv: invalid tag")
	ErrMalformed    = errors.New("mkv: malformed header")
)
