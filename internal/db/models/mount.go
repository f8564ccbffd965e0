package db

import (
	"database/sql"
	"time"
)

// MountState tracks how a mount cycle ended (or that it is still up).
type MountState string

const (
	MountStateMounted MountState = "mounted"
	MountStateStopped MountState = "stopped" // worker unmounted cleanly
	MountStateKilled  MountState = "killed"  // unmount timed out, worker terminated
)

// Mount records one launch of a drive worker.
type Mount struct {
	ID          string // UUID of this mount cycle
	ChannelName string // parameter channel name handed to the worker
	Pid         int    // worker process PID
	MountPath   string
	StoragePath string
	DriveName   string
	Kind        string // drive kind the worker was resolved from
	State       MountState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InsertMount saves a new Mount to the database.
func InsertMount(db *sql.DB, mount *Mount) error {
	query := `
		INSERT INTO mounts (id, channel_name, pid, mount_path, storage_path, drive_name, kind, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().Unix()
	_, err := db.Exec(query,
		mount.ID, mount.ChannelName, mount.Pid, mount.MountPath,
		mount.StoragePath, mount.DriveName, mount.Kind, mount.State, now, now)
	return err
}

// GetMountByID retrieves a Mount by ID from the database.
func GetMountByID(db *sql.DB, id string) (*Mount, error) {
	query := `SELECT id, channel_name, pid, mount_path, storage_path, drive_name, kind, state, created_at, updated_at FROM mounts WHERE id = ?`
	row := db.QueryRow(query, id)

	var createdAt, updatedAt int64
	mount := &Mount{}
	err := row.Scan(&mount.ID, &mount.ChannelName, &mount.Pid, &mount.MountPath,
		&mount.StoragePath, &mount.DriveName, &mount.Kind, &mount.State,
		&createdAt, &updatedAt)

	if err != nil {
		return nil, err
	}

	mount.CreatedAt = time.Unix(createdAt, 0)
	mount.UpdatedAt = time.Unix(updatedAt, 0)
	return mount, nil
}

// ListMountsByState retrieves all Mounts in the given state, newest first.
func ListMountsByState(db *sql.DB, state MountState) ([]*Mount, error) {
	query := `SELECT id, channel_name, pid, mount_path, storage_path, drive_name, kind, state, created_at, updated_at FROM mounts WHERE state = ? ORDER BY created_at DESC`
	rows, err := db.Query(query, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mounts []*Mount
	for rows.Next() {
		var createdAt, updatedAt int64
		mount := &Mount{}
		if err := rows.Scan(&mount.ID, &mount.ChannelName, &mount.Pid, &mount.MountPath,
			&mount.StoragePath, &mount.DriveName, &mount.Kind, &mount.State,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		mount.CreatedAt = time.Unix(createdAt, 0)
		mount.UpdatedAt = time.Unix(updatedAt, 0)
		mounts = append(mounts, mount)
	}

	return mounts, rows.Err()
}

// UpdateMountState records how a mount cycle ended.
func UpdateMountState(db *sql.DB, id string, state MountState) error {
	query := `UPDATE mounts SET state = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, state, time.Now().Unix(), id)
	return err
}

// DeleteMount removes a Mount from the database.
func DeleteMount(db *sql.DB, id string) error {
	query := `DELETE FROM mounts WHERE id = ?`
	_, err := db.Exec(query, id)
	return err
}
