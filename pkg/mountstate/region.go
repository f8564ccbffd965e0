// Package mountstate implements the shared memory region through which the
// launcher and the drive worker coordinate mount and unmount.
//
// The region holds a process-shared mutex, a condition word and two flags
// (mounted, unmount requested). Both flags are only touched while the mutex
// is held, and every wait re-checks its predicate after each wakeup, so a
// signal raised before the waiter arrives is never lost. Its name is derived
// from the parameter channel name (ipc.StatusRegionName); a conforming
// worker computes the same name on its own.
package mountstate

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/maxdollinger/drive.io/pkg/ipc"
)

// state is the fixed wire layout of the region. All words little-endian,
// page-aligned by mmap. Zero value = unlocked, nothing mounted: a freshly
// created (zero-filled) segment is already in its initial state.
type state struct {
	mu      uint32 // futex mutex word
	seq     uint32 // condition sequence word
	mounted uint32 // 0/1, guarded by mu
	unmount uint32 // 0/1, guarded by mu
}

const regionSize = int(unsafe.Sizeof(state{}))

// Region is an attached mount-status segment. The creator removes the
// underlying segment when the cycle is over; openers only Close.
type Region struct {
	seg *ipc.Segment
	st  *state
}

// Create allocates the named status region. The launcher calls this before
// spawning the worker so the region always exists when the worker looks.
func Create(name string) (*Region, error) {
	seg, err := ipc.CreateSegment(name, regionSize)
	if err != nil {
		return nil, err
	}
	return attach(seg)
}

// Open attaches to a status region created by the peer.
func Open(name string) (*Region, error) {
	seg, err := ipc.OpenSegment(name)
	if err != nil {
		return nil, err
	}
	return attach(seg)
}

func attach(seg *ipc.Segment) (*Region, error) {
	if len(seg.Data) < regionSize {
		_ = seg.Close()
		return nil, fmt.Errorf("status region %s is %d bytes, need %d",
			seg.Name, len(seg.Data), regionSize)
	}
	return &Region{
		seg: seg,
		st:  (*state)(unsafe.Pointer(&seg.Data[0])),
	}, nil
}

// Close unmaps the region. It does not remove the segment.
func (r *Region) Close() error {
	r.st = nil
	return r.seg.Close()
}

// Remove unlinks the named status region; absence is not an error.
func Remove(name string) error {
	return ipc.RemoveSegment(name)
}

// SignalMounted marks the drive as mounted and wakes a waiter.
func (r *Region) SignalMounted() {
	r.signal(func(s *state) { atomic.StoreUint32(&s.mounted, 1) })
}

// SignalUnmounted marks the drive as no longer mounted and wakes a waiter.
func (r *Region) SignalUnmounted() {
	r.signal(func(s *state) { atomic.StoreUint32(&s.mounted, 0) })
}

// RequestUnmount asks the worker to unmount and wakes a waiter.
func (r *Region) RequestUnmount() {
	r.signal(func(s *state) { atomic.StoreUint32(&s.unmount, 1) })
}

func (r *Region) signal(set func(*state)) {
	m := futexMutex{&r.st.mu}
	m.lock()
	set(r.st)
	atomic.AddUint32(&r.st.seq, 1)
	futexWake(&r.st.seq, 1)
	m.unlock()
}

// WaitUntilMounted blocks until the worker signals mounted or the timeout
// elapses; reports whether the drive is mounted.
func (r *Region) WaitUntilMounted(timeout time.Duration) bool {
	return r.waitFor(timeout, func(s *state) bool {
		return atomic.LoadUint32(&s.mounted) == 1
	})
}

// WaitUntilUnmounted blocks until the worker clears mounted or the timeout
// elapses; reports whether the drive is unmounted.
func (r *Region) WaitUntilUnmounted(timeout time.Duration) bool {
	return r.waitFor(timeout, func(s *state) bool {
		return atomic.LoadUint32(&s.mounted) == 0
	})
}

// WaitUntilUnmountRequested is the worker side of teardown: blocks until
// the launcher requests unmount or the timeout elapses.
func (r *Region) WaitUntilUnmountRequested(timeout time.Duration) bool {
	return r.waitFor(timeout, func(s *state) bool {
		return atomic.LoadUint32(&s.unmount) == 1
	})
}

// waitFor is a predicate-checked timed wait. The sequence word is sampled
// under the mutex before sleeping, so a signal between unlock and
// futexWait changes the word and the wait returns immediately rather than
// missing the wakeup. Spurious and unrelated wakeups fall out of the
// predicate re-check.
func (r *Region) waitFor(timeout time.Duration, pred func(*state) bool) bool {
	deadline := time.Now().Add(timeout)
	m := futexMutex{&r.st.mu}
	m.lock()
	defer m.unlock()

	for !pred(r.st) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		seq := atomic.LoadUint32(&r.st.seq)
		m.unlock()
		_ = futexWait(&r.st.seq, seq, remaining)
		m.lock()
	}
	return true
}
