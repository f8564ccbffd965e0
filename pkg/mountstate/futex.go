package mountstate

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The mutex and condition variable live in shared memory, so they are built
// directly on futexes. FUTEX_PRIVATE_FLAG must not be used here: the words
// are shared between the launcher and the worker process.

// Futex operation codes from <linux/futex.h>; x/sys/unix exports the
// syscall number but not these.
const (
	futexWaitOp = 0 // FUTEX_WAIT
	futexWakeOp = 1 // FUTEX_WAKE
)

// futexWait blocks until the word at addr no longer holds val, a wake
// arrives, or the timeout elapses. timeout <= 0 means wait indefinitely.
// EAGAIN (word already changed), EINTR and ETIMEDOUT are all returned to the
// caller, which re-checks its predicate either way.
func futexWait(addr *uint32, val uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), futexWaitOp, uintptr(val),
		uintptr(unsafe.Pointer(ts)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// futexWake wakes up to n waiters blocked on addr.
func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), futexWakeOp, uintptr(n),
		0, 0, 0)
}

// futexMutex is a three-state futex lock (0 unlocked, 1 locked, 2 locked
// with waiters) over a word in the shared region.
type futexMutex struct {
	word *uint32
}

func (m futexMutex) lock() {
	if atomic.CompareAndSwapUint32(m.word, 0, 1) {
		return
	}
	// Contended: mark the lock as having waiters before each sleep, so the
	// holder knows a wake is needed on unlock.
	for {
		if atomic.SwapUint32(m.word, 2) == 0 {
			return
		}
		_ = futexWait(m.word, 2, 0)
	}
}

func (m futexMutex) unlock() {
	if atomic.SwapUint32(m.word, 0) == 2 {
		futexWake(m.word, 1)
	}
}
