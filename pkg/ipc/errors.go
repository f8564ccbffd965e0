package ipc

import "errors"

var (
	// Segment errors
	ErrSegmentExists  = errors.New("shared memory segment already exists")
	ErrSegmentMissing = errors.New("shared memory segment does not exist")
	ErrSegmentMap     = errors.New("failed to map shared memory segment")

	// Channel errors
	ErrMalformedChannel = errors.New("malformed parameter channel payload")
	ErrEmptyField       = errors.New("parameter channel field is empty")
)
