package proc

import "errors"

var (
	ErrSpawn            = errors.New("failed to start worker process")
	ErrWaitTimeout      = errors.New("timed out waiting for process exit")
	ErrUnknownDriveKind = errors.New("unknown drive kind")
)
