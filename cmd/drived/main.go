// drived performs one drive mount/unmount cycle: it launches the worker for
// the requested drive kind, records the mount in the registry, and unmounts
// on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/maxdollinger/drive.io/internal/db"
	models "github.com/maxdollinger/drive.io/internal/db/models"
	"github.com/maxdollinger/drive.io/internal/launcher"
	"github.com/maxdollinger/drive.io/pkg/ipc"
	"github.com/maxdollinger/drive.io/pkg/lock"
	"github.com/maxdollinger/drive.io/pkg/proc"
	"github.com/maxdollinger/drive.io/pkg/utils"
)

const (
	DRIVEIO_BASE = "/var/lib/driveio/"
	DB_PATH      = DRIVEIO_BASE + "drive.db"
	LOCK_DIR     = DRIVEIO_BASE + "locks"
	LOG_DIR      = DRIVEIO_BASE + "logs"
)

func main() {
	mountPath := flag.String("mount", "", "mount point for the drive")
	storagePath := flag.String("storage", "", "backing storage location")
	driveName := flag.String("name", "drive", "human readable drive name")
	kind := flag.String("kind", string(proc.DriveLocal), "drive kind: local, local-console, network, network-console")
	createStore := flag.Bool("create", false, "create a fresh store")
	uniqueID := flag.String("id", "", "unique identity token (random if empty)")
	rootParentID := flag.String("root-id", "", "root parent identity token (random if empty)")
	tail := flag.Bool("tail", false, "print the worker log after unmount")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *mountPath == "" || *storagePath == "" {
		fmt.Fprintln(os.Stderr, "drived: --mount and --storage are required")
		os.Exit(2)
	}

	if err := run(logger, *mountPath, *storagePath, *driveName, *kind, *uniqueID, *rootParentID, *createStore, *tail); err != nil {
		fmt.Fprintf(os.Stderr, "drived: %s\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, mountPath, storagePath, driveName, kind, uniqueID, rootParentID string, createStore, tail bool) error {
	driveDB, err := db.NewDB(DB_PATH)
	if err != nil {
		return err
	}
	defer driveDB.Close()

	if err := db.InitSchema(context.Background(), driveDB); err != nil {
		return err
	}

	if uniqueID == "" {
		if uniqueID, err = utils.RandomAlphaNumeric(64); err != nil {
			return fmt.Errorf("generate unique id: %w", err)
		}
	}
	if rootParentID == "" {
		if rootParentID, err = utils.RandomAlphaNumeric(64); err != nil {
			return fmt.Errorf("generate root parent id: %w", err)
		}
	}

	mountID, err := utils.NewUUID7()
	if err != nil {
		return fmt.Errorf("generate mount id: %w", err)
	}

	if err := os.MkdirAll(LOG_DIR, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logPath := filepath.Join(LOG_DIR, mountID+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create worker log file: %w", err)
	}
	defer logFile.Close()

	opts := launcher.Options{
		Params: ipc.LaunchParams{
			MountPath:    mountPath,
			StoragePath:  storagePath,
			UniqueID:     uniqueID,
			RootParentID: rootParentID,
			DriveName:    driveName,
			CreateStore:  createStore,
		},
		Kind:         proc.DriveKind(kind),
		WorkerOutput: logFile,
	}

	l, err := launcher.New(opts, launcher.ExecSupervisor{}, lock.NewFlockLocker(LOCK_DIR))
	if err != nil {
		return err
	}

	mount := &models.Mount{
		ID:          mountID,
		ChannelName: l.ChannelName(),
		Pid:         l.Pid(),
		MountPath:   mountPath,
		StoragePath: storagePath,
		DriveName:   driveName,
		Kind:        kind,
		State:       models.MountStateMounted,
	}
	if err := models.InsertMount(driveDB, mount); err != nil {
		logger.Warn("record mount in registry", "error", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("drive mounted, waiting for signal", "mount_id", mountID, "pid", l.Pid())
	<-sig

	logger.Info("unmounting")
	l.Stop()

	state := models.MountStateStopped
	if l.Escalated() {
		state = models.MountStateKilled
	}
	if err := models.UpdateMountState(driveDB, mountID, state); err != nil {
		logger.Warn("update mount registry", "error", err)
	}

	if tail {
		if err := utils.TailUntilIdle(logPath, os.Stdout, 200*time.Millisecond, 50*time.Millisecond); err != nil {
			logger.Warn("tail worker log", "error", err)
		}
	}
	return nil
}
