package proc

import (
	"fmt"
	"os"
	"path/filepath"
)

// DriveKind selects which worker executable serves a mount.
type DriveKind string

const (
	DriveLocal          DriveKind = "local"
	DriveLocalConsole   DriveKind = "local-console"
	DriveNetwork        DriveKind = "network"
	DriveNetworkConsole DriveKind = "network-console"
)

// workerExecutables is a closed table; an unlisted kind is a caller error,
// never a silent default.
var workerExecutables = map[DriveKind]string{
	DriveLocal:          "local_drive",
	DriveLocalConsole:   "local_drive_console",
	DriveNetwork:        "network_drive",
	DriveNetworkConsole: "network_drive_console",
}

// ExecutablePath resolves a drive kind to the worker binary. Workers are
// expected next to the current executable, or under DRIVEIO_WORKER_DIR when
// set.
func ExecutablePath(kind DriveKind) (string, error) {
	name, ok := workerExecutables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDriveKind, kind)
	}

	dir := os.Getenv("DRIVEIO_WORKER_DIR")
	if dir == "" {
		self, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate own executable: %w", err)
		}
		dir = filepath.Dir(self)
	}
	return filepath.Join(dir, name), nil
}
