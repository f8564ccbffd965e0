package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sys/unix"
)

const acquireRetryEvery = 50 * time.Millisecond

// FlockLocker implements Locker with advisory file locks under dir. The
// lock holds as long as the file descriptor is open, so a crashed holder
// releases it automatically.
type FlockLocker struct {
	dir string
}

func NewFlockLocker(dir string) *FlockLocker {
	return &FlockLocker{dir: dir}
}

func (l *FlockLocker) AcquireLock(ctx context.Context, d digest.Digest) (Lock, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(l.dir, d.Algorithm().String()+"-"+d.Encoded()+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &flockLock{file: f}, nil
		}
		if err != unix.EWOULDBLOCK {
			_ = f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-time.After(acquireRetryEvery):
		}
	}
}

type flockLock struct {
	file *os.File
}

func (l *flockLock) Release() error {
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return errors.Join(err, l.file.Close())
}
