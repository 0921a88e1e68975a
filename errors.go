//////////////////////////////////////////////////////////////////////////////
//
// Stream errors
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohakvs

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/alohakvs/internal/mkv"
)

var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrInvalidClusterHeaderLen = errors.New("invalid cluster header length")
	ErrMkvInit                 = errors.New("failed to initialize mkv headers")
	ErrNotInitialized          = errors.New("stream mkv header is not initialized")
	ErrLock                    = errors.New("stream lock unavailable")
	ErrLockInit                = errors.New("failed to initialize stream lock")
	ErrNotDrained              = errors.New("stream closed with frames still pending")

	// Header rendering failures. Shared with the mkv package so errors.Is
	// works across the boundary.
	ErrEncoding = mkv.ErrEncoding
)
