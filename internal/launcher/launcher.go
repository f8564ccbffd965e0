// Package launcher starts a drive worker process and coordinates its
// mount/unmount lifecycle over shared memory.
//
// The handshake uses two segments. A one-shot parameter channel, named with
// a fresh random token, carries the launch options; the worker reads it and
// deletes it. A longer-lived status region, whose name both sides derive
// from the channel name, carries the mounted / unmount-requested flags
// behind a process-shared mutex. The launcher creates both before spawning
// the worker and removes both after the worker is gone, so neither segment
// can outlive a failed or completed launch.
package launcher

import (
	"context"
	// the lock key is a go-digest SHA-256; the hash must be linked in or
	// FromString panics at runtime.
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/maxdollinger/drive.io/pkg/ipc"
	"github.com/maxdollinger/drive.io/pkg/lock"
	"github.com/maxdollinger/drive.io/pkg/mountstate"
	"github.com/maxdollinger/drive.io/pkg/proc"
	"github.com/maxdollinger/drive.io/pkg/utils"
)

var ErrMountTimeout = errors.New("timed out waiting for drive to mount")

const (
	DefaultMountTimeout   = 10 * time.Second
	DefaultUnmountTimeout = 10 * time.Second

	channelNameLen  = 32
	workerExitGrace = 2 * time.Second
)

// Options configures one mount cycle.
type Options struct {
	Params ipc.LaunchParams
	Kind   proc.DriveKind

	// LogArgs are passed through on the worker's command line, after the
	// channel flag.
	LogArgs []string

	// WorkerOutput receives the worker's stdout and stderr (nil discards).
	WorkerOutput io.Writer

	// Zero values fall back to the 10s defaults.
	MountTimeout   time.Duration
	UnmountTimeout time.Duration
}

// Supervisor starts worker processes. The production implementation wraps
// pkg/proc; tests stand in a fake whose "worker" is a goroutine.
type Supervisor interface {
	Spawn(exe string, args []string, out io.Writer) (Handle, error)
}

// Handle is the launcher's view of a spawned worker process.
type Handle interface {
	Pid() int
	WaitExit(timeout time.Duration) (int, error)
	Terminate() error
}

// ExecSupervisor spawns real OS processes.
type ExecSupervisor struct{}

func (ExecSupervisor) Spawn(exe string, args []string, out io.Writer) (Handle, error) {
	return proc.Spawn(exe, args, out)
}

// State is where a Launcher is in its lifecycle.
type State string

const (
	StateConstructing State = "constructing"
	StateMounted      State = "mounted"
	StateUnmounting   State = "unmounting"
	StateStopped      State = "stopped"
)

// Launcher owns the parameter channel, the status region and the worker
// process for exactly one mount/unmount cycle. New blocks until the drive
// is mounted; Stop blocks until it is unmounted or the worker has been
// terminated. After Stop nothing survives: no child process, no segments.
type Launcher struct {
	opts        Options
	channelName string
	statusName  string
	region      *mountstate.Region
	handle      Handle
	pathLock    lock.Lock
	state       State
	escalated   bool
	logger      *slog.Logger
}

// New runs the full mount sequence:
//  1. Generate a fresh channel name and write the parameter channel.
//  2. Derive the status-region name and create the region. This happens
//     before the spawn so the worker can always find it.
//  3. Spawn the worker with only the channel name on its command line.
//  4. Wait, bounded, for the worker to signal mounted.
//
// On any failure every resource acquired so far is released before the
// error is returned; cleanup failures are logged and never mask the
// primary error.
func New(opts Options, sup Supervisor, locker lock.Locker) (_ *Launcher, err error) {
	if opts.MountTimeout <= 0 {
		opts.MountTimeout = DefaultMountTimeout
	}
	if opts.UnmountTimeout <= 0 {
		opts.UnmountTimeout = DefaultUnmountTimeout
	}

	l := &Launcher{
		opts:   opts,
		state:  StateConstructing,
		logger: slog.Default().With("mount_path", opts.Params.MountPath, "drive", opts.Params.DriveName),
	}

	// l is a local, not the return value: the failure paths return nil and
	// the unwind must still reach the launcher that was being built.
	defer func() {
		if err != nil {
			l.Stop()
		}
	}()

	// The worker binary is resolved first: an unknown kind should fail
	// before anything is allocated.
	exe, err := proc.ExecutablePath(opts.Kind)
	if err != nil {
		return nil, err
	}

	// Serialize launches onto the same mount path.
	lockCtx, cancel := context.WithTimeout(context.Background(), opts.MountTimeout)
	defer cancel()
	l.pathLock, err = locker.AcquireLock(lockCtx, digest.SHA256.FromString(opts.Params.MountPath))
	if err != nil {
		return nil, fmt.Errorf("lock mount path %s: %w", opts.Params.MountPath, err)
	}

	l.channelName, err = utils.RandomAlphaNumeric(channelNameLen)
	if err != nil {
		return nil, fmt.Errorf("generate channel name: %w", err)
	}

	if err = ipc.WriteParams(l.channelName, opts.Params); err != nil {
		return nil, fmt.Errorf("create parameter channel: %w", err)
	}

	l.statusName = ipc.StatusRegionName(l.channelName)
	l.region, err = mountstate.Create(l.statusName)
	if err != nil {
		return nil, fmt.Errorf("create status region: %w", err)
	}

	args := append([]string{"--shared_memory", l.channelName}, opts.LogArgs...)
	l.handle, err = sup.Spawn(exe, args, opts.WorkerOutput)
	if err != nil {
		return nil, err
	}
	l.logger.Info("drive worker started", "pid", l.handle.Pid(), "exe", exe)

	if !l.region.WaitUntilMounted(opts.MountTimeout) {
		return nil, fmt.Errorf("%w after %s", ErrMountTimeout, opts.MountTimeout)
	}

	l.state = StateMounted
	l.logger.Info("drive mounted", "pid", l.handle.Pid())
	return l, nil
}

// State reports where the launcher is in its lifecycle.
func (l *Launcher) State() State {
	return l.state
}

// Escalated reports whether teardown had to terminate the worker because it
// did not unmount within the bound.
func (l *Launcher) Escalated() bool {
	return l.escalated
}

// ChannelName returns the parameter channel name handed to the worker.
func (l *Launcher) ChannelName() string {
	return l.channelName
}

// Pid returns the worker pid, or 0 if no worker was spawned.
func (l *Launcher) Pid() int {
	if l.handle == nil {
		return 0
	}
	return l.handle.Pid()
}

// Stop runs the teardown sequence: request unmount, wait bounded for the
// worker to clear mounted, then either reap the exited worker or, on
// timeout, terminate it immediately. Both segments are removed in every
// branch. Stop is idempotent and never returns an error: teardown failures
// are logged and absorbed so the caller's primary outcome survives.
func (l *Launcher) Stop() {
	if l.state == StateStopped {
		return
	}
	l.state = StateUnmounting

	l.stopWorker()
	l.removeSegments()

	if l.pathLock != nil {
		if err := l.pathLock.Release(); err != nil {
			l.logger.Warn("release mount path lock", "error", err)
		}
		l.pathLock = nil
	}

	l.state = StateStopped
}

func (l *Launcher) stopWorker() {
	if l.handle == nil {
		return
	}
	pid := l.handle.Pid()

	l.region.RequestUnmount()
	if l.region.WaitUntilUnmounted(l.opts.UnmountTimeout) {
		code, err := l.handle.WaitExit(workerExitGrace)
		if err != nil {
			// Covers a worker that signaled unmounted (or never mounted at
			// all) but is stuck: nothing may outlive the teardown.
			l.logger.Warn("waiting for drive worker exit", "pid", pid, "error", err)
			if err := l.handle.Terminate(); err != nil {
				l.logger.Error("terminate drive worker", "pid", pid, "error", err)
			}
		} else {
			l.logger.Info("drive worker exited", "pid", pid, "exit_code", code)
		}
	} else {
		// Single-shot escalation: no second wait, no kill-then-confirm.
		l.escalated = true
		l.logger.Warn("drive did not unmount in time, terminating worker", "pid", pid)
		if err := l.handle.Terminate(); err != nil {
			l.logger.Error("terminate drive worker", "pid", pid, "error", err)
		}
	}
	l.handle = nil
}

func (l *Launcher) removeSegments() {
	if l.region != nil {
		if err := l.region.Close(); err != nil {
			l.logger.Warn("unmap status region", "error", err)
		}
		l.region = nil
	}
	if l.channelName != "" {
		if err := ipc.RemoveChannel(l.channelName); err != nil {
			l.logger.Warn("remove parameter channel", "error", err)
		}
	}
	if l.statusName != "" {
		if err := mountstate.Remove(l.statusName); err != nil {
			l.logger.Warn("remove status region", "error", err)
		}
	}
}
