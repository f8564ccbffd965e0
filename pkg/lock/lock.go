package lock

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// Locker provides cross-process locking keyed by digest, used to keep two
// launchers from racing onto the same mount path.
// Blocks until the lock is acquired or the context is cancelled.
type Locker interface {
	AcquireLock(ctx context.Context, digest digest.Digest) (Lock, error)
}

// Lock represents an acquired lock that must be released
type Lock interface {
	Release() error
}
