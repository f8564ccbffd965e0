// Package proc spawns and supervises drive worker processes.
package proc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

// Handle represents one live (or exited) worker process. A Handle always
// reaps its child: the wait runs in a goroutine started at spawn time, so
// neither WaitExit nor Terminate can leave a zombie behind.
type Handle struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
	waitErr  error
	logger   *slog.Logger
}

// Spawn starts exe with args. Worker output is sent to out (may be nil).
func Spawn(exe string, args []string, out io.Writer) (*Handle, error) {
	cmd := exec.Command(exe, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, exe, err)
	}

	h := &Handle{
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: slog.Default(),
	}

	go func() {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.exitCode = exitErr.ExitCode()
			err = nil
		}
		h.waitErr = err
		close(h.done)
	}()

	return h, nil
}

// Pid returns the worker's process id.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// WaitExit blocks until the process exits or the timeout elapses. On exit it
// returns the exit code; on timeout it returns ErrWaitTimeout and the
// process keeps running.
func (h *Handle) WaitExit(timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.exitCode, h.waitErr
	case <-timer.C:
		return 0, fmt.Errorf("pid %d: %w", h.Pid(), ErrWaitTimeout)
	}
}

// Terminate kills the process and reaps it. Killing a process that already
// exited is logged, not an error.
func (h *Handle) Terminate() error {
	select {
	case <-h.done:
		h.logger.Debug("terminate skipped, worker already exited", "pid", h.Pid())
		return nil
	default:
	}

	if err := h.cmd.Process.Kill(); err != nil {
		h.logger.Warn("kill worker process", "pid", h.Pid(), "error", err)
	}
	<-h.done
	return nil
}
