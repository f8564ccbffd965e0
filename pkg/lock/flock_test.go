package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
)

func TestFlockAcquireRelease(t *testing.T) {
	locker := NewFlockLocker(t.TempDir())
	key := digest.SHA256.FromString("/mnt/drive")

	l, err := locker.AcquireLock(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestFlockExcludesSecondHolder(t *testing.T) {
	locker := NewFlockLocker(t.TempDir())
	key := digest.SHA256.FromString("/mnt/drive")

	held, err := locker.AcquireLock(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := locker.AcquireLock(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second acquire: got %v, want context deadline", err)
	}

	if err := held.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	// released locks can be re-acquired
	reacquired, err := locker.AcquireLock(context.Background(), key)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	_ = reacquired.Release()
}

func TestFlockDistinctKeysDoNotContend(t *testing.T) {
	locker := NewFlockLocker(t.TempDir())

	a, err := locker.AcquireLock(context.Background(), digest.SHA256.FromString("/mnt/a"))
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer a.Release()

	b, err := locker.AcquireLock(context.Background(), digest.SHA256.FromString("/mnt/b"))
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	defer b.Release()
}

func TestNoOpLockerNeverBlocks(t *testing.T) {
	l, err := NewNoOpLocker().AcquireLock(context.Background(), digest.SHA256.FromString("x"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}
