// mockdrive is a conforming drive worker stub. It performs the launcher
// handshake (consume the parameter channel, derive the status region name,
// signal mounted, wait for the unmount request, signal unmounted) without
// mounting anything. Useful for exercising the launcher end to end, and as
// a reference for what a real worker must do.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maxdollinger/drive.io/pkg/ipc"
	"github.com/maxdollinger/drive.io/pkg/mountstate"
)

func main() {
	channelName := flag.String("shared_memory", "", "name of the parameter channel created by the launcher")
	mountFor := flag.Duration("mount_for", 24*time.Hour, "how long to stay mounted waiting for an unmount request")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *channelName == "" {
		fmt.Fprintln(os.Stderr, "mockdrive: --shared_memory is required")
		os.Exit(2)
	}

	params, err := ipc.ConsumeParams(*channelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mockdrive: read parameter channel: %s\n", err)
		os.Exit(1)
	}
	logger = logger.With("mount_path", params.MountPath, "drive", params.DriveName)
	logger.Info("launch parameters received",
		"storage_path", params.StoragePath,
		"create_store", params.CreateStore)

	statusName := ipc.StatusRegionName(*channelName)
	if err := mountstate.NotifyMountedAndAwaitUnmount(statusName, *mountFor); err != nil {
		fmt.Fprintf(os.Stderr, "mockdrive: %s\n", err)
		os.Exit(1)
	}
	logger.Info("unmount requested")

	if err := mountstate.NotifyUnmounted(statusName); err != nil {
		fmt.Fprintf(os.Stderr, "mockdrive: %s\n", err)
		os.Exit(1)
	}
	logger.Info("unmounted, exiting")
}
