package mountstate

import (
	"errors"
	"testing"
	"time"

	"github.com/maxdollinger/drive.io/pkg/ipc"
	"github.com/maxdollinger/drive.io/pkg/utils"
)

func createRegion(t *testing.T) (*Region, string) {
	t.Helper()
	name, err := utils.RandomAlphaNumeric(32)
	if err != nil {
		t.Fatalf("generate region name: %v", err)
	}
	r, err := Create(name)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = Remove(name)
	})
	return r, name
}

func TestOpenMissingRegion(t *testing.T) {
	name, err := utils.RandomAlphaNumeric(32)
	if err != nil {
		t.Fatalf("generate region name: %v", err)
	}
	if _, err := Open(name); !errors.Is(err, ipc.ErrSegmentMissing) {
		t.Fatalf("got %v, want ErrSegmentMissing", err)
	}
}

func TestCreateRegionCollision(t *testing.T) {
	_, name := createRegion(t)
	if _, err := Create(name); !errors.Is(err, ipc.ErrSegmentExists) {
		t.Fatalf("got %v, want ErrSegmentExists", err)
	}
}

// A signal raised before the waiter arrives must still be observed: the
// flags are level-triggered, not edge-triggered.
func TestSignalBeforeWaitIsNotLost(t *testing.T) {
	r, _ := createRegion(t)

	r.SignalMounted()

	start := time.Now()
	if !r.WaitUntilMounted(5 * time.Second) {
		t.Fatal("waiter missed a signal raised before the wait began")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("pre-signaled wait blocked for %s", elapsed)
	}
}

func TestWaitTimeoutBound(t *testing.T) {
	r, _ := createRegion(t)

	const timeout = 300 * time.Millisecond
	start := time.Now()
	if r.WaitUntilMounted(timeout) {
		t.Fatal("wait reported mounted with no signaler")
	}
	elapsed := time.Since(start)

	if elapsed < timeout {
		t.Fatalf("wait returned after %s, before the %s bound", elapsed, timeout)
	}
	if elapsed > timeout+2*time.Second {
		t.Fatalf("wait returned after %s, far beyond the %s bound", elapsed, timeout)
	}
}

// Creator and opener attach to the same segment; a signal through one
// attachment wakes a waiter on the other.
func TestSignalAcrossAttachments(t *testing.T) {
	r, name := createRegion(t)

	peer, err := Open(name)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	defer peer.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		peer.SignalMounted()
	}()

	if !r.WaitUntilMounted(5 * time.Second) {
		t.Fatal("creator never observed the peer's signal")
	}
}

func TestUnmountHandshake(t *testing.T) {
	r, name := createRegion(t)

	peer, err := Open(name)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	defer peer.Close()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		peer.SignalMounted()
		if !peer.WaitUntilUnmountRequested(5 * time.Second) {
			t.Error("worker never saw the unmount request")
			return
		}
		peer.SignalUnmounted()
	}()

	if !r.WaitUntilMounted(5 * time.Second) {
		t.Fatal("launcher never saw mounted")
	}
	r.RequestUnmount()
	if !r.WaitUntilUnmounted(5 * time.Second) {
		t.Fatal("launcher never saw unmounted")
	}
	<-workerDone
}

func TestWaitUntilUnmountRequestedTimesOut(t *testing.T) {
	r, _ := createRegion(t)
	if r.WaitUntilUnmountRequested(200 * time.Millisecond) {
		t.Fatal("unmount reported requested with no requester")
	}
}

func TestWorkerNotifyHelpers(t *testing.T) {
	r, name := createRegion(t)

	workerErr := make(chan error, 1)
	go func() {
		if err := NotifyMountedAndAwaitUnmount(name, 5*time.Second); err != nil {
			workerErr <- err
			return
		}
		workerErr <- NotifyUnmounted(name)
	}()

	if !r.WaitUntilMounted(5 * time.Second) {
		t.Fatal("launcher never saw mounted")
	}
	r.RequestUnmount()
	if !r.WaitUntilUnmounted(5 * time.Second) {
		t.Fatal("launcher never saw unmounted")
	}
	if err := <-workerErr; err != nil {
		t.Fatalf("worker helper: %v", err)
	}
}

func TestNotifyHelpersTimeout(t *testing.T) {
	_, name := createRegion(t)
	if err := NotifyMountedAndAwaitUnmount(name, 100*time.Millisecond); err == nil {
		t.Fatal("expected timeout error when no unmount request arrives")
	}
}
