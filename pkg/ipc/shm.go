// Package ipc provides named POSIX shared memory segments and the one-shot
// parameter channel used to hand launch options to the drive worker process.
//
// Segments live under /dev/shm and are addressed by bare name, so any two
// processes on the same host that agree on a name share the same memory.
// Linux only.
package ipc

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

const shmDir = "/dev/shm"

// Segment is a mapped shared memory region. Data stays valid until Close.
type Segment struct {
	Name string
	Data []byte
}

func segmentPath(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("invalid segment name %q", name)
	}
	return shmDir + "/" + name, nil
}

// CreateSegment allocates and maps a new zero-filled segment of the given
// size. The name must not be in use.
func CreateSegment(name string, size int) (*Segment, error) {
	path, err := segmentPath(name)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		if err == unix.EEXIST {
			return nil, fmt.Errorf("create segment %s: %w", name, ErrSegmentExists)
		}
		return nil, fmt.Errorf("create segment %s: %w", name, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("size segment %s to %d bytes: %w", name, size, err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("map segment %s: %w: %v", name, ErrSegmentMap, err)
	}

	return &Segment{Name: name, Data: data}, nil
}

// OpenSegment maps an existing segment read/write. Openers never remove the
// segment; that stays with whoever created it.
func OpenSegment(name string) (*Segment, error) {
	path, err := segmentPath(name)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		if err == unix.ENOENT {
			return nil, fmt.Errorf("open segment %s: %w", name, ErrSegmentMissing)
		}
		return nil, fmt.Errorf("open segment %s: %w", name, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("stat segment %s: %w", name, err)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map segment %s: %w: %v", name, ErrSegmentMap, err)
	}

	return &Segment{Name: name, Data: data}, nil
}

// Close unmaps the segment. The underlying object stays until RemoveSegment.
func (s *Segment) Close() error {
	if s.Data == nil {
		return nil
	}
	err := unix.Munmap(s.Data)
	s.Data = nil
	return err
}

// RemoveSegment unlinks the named segment. Removing a segment that does not
// exist is not an error.
func RemoveSegment(name string) error {
	path, err := segmentPath(name)
	if err != nil {
		return err
	}
	if err := unix.Unlink(path); err != nil && err != unix.ENOENT {
		return fmt.Errorf("remove segment %s: %w", name, err)
	}
	return nil
}
