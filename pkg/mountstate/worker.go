package mountstate

import (
	"fmt"
	"time"
)

// Worker-side conveniences. A drive worker that has consumed the parameter
// channel and derived the status region name calls these to run its half of
// the handshake.

// NotifyMountedAndAwaitUnmount opens the named region, signals that the
// mount is up, and blocks until the launcher requests unmount or the
// timeout elapses.
func NotifyMountedAndAwaitUnmount(name string, timeout time.Duration) error {
	r, err := Open(name)
	if err != nil {
		return err
	}
	defer r.Close()

	r.SignalMounted()
	if !r.WaitUntilUnmountRequested(timeout) {
		return fmt.Errorf("status region %s: no unmount request within %s", name, timeout)
	}
	return nil
}

// NotifyUnmounted opens the named region and signals that the mount is gone.
func NotifyUnmounted(name string) error {
	r, err := Open(name)
	if err != nil {
		return err
	}
	defer r.Close()

	r.SignalUnmounted()
	return nil
}
