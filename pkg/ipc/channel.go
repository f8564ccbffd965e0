package ipc

import (
	"encoding/binary"
	"fmt"
)

// The parameter channel is a write-once-read-once handoff: the launcher
// writes the launch fields, the worker reads them and deletes the segment.
// Each field is framed as a little-endian uint32 length followed by the
// bytes; position is the only schema.

// CreateChannel allocates a segment named name holding fields in order.
func CreateChannel(name string, fields []string) error {
	size := 0
	for _, f := range fields {
		size += 4 + len(f)
	}

	seg, err := CreateSegment(name, size)
	if err != nil {
		return err
	}
	defer seg.Close()

	off := 0
	for _, f := range fields {
		binary.LittleEndian.PutUint32(seg.Data[off:], uint32(len(f)))
		off += 4
		copy(seg.Data[off:], f)
		off += len(f)
	}
	return nil
}

// ReadChannel opens the named channel and parses exactly expectedFields
// framed strings. A short, oversized, or truncated payload is a protocol
// violation, not a resource error.
func ReadChannel(name string, expectedFields int) ([]string, error) {
	seg, err := OpenSegment(name)
	if err != nil {
		return nil, err
	}
	defer seg.Close()

	fields := make([]string, 0, expectedFields)
	off := 0
	for i := 0; i < expectedFields; i++ {
		if off+4 > len(seg.Data) {
			return nil, fmt.Errorf("channel %s: field %d: %w", name, i, ErrMalformedChannel)
		}
		n := int(binary.LittleEndian.Uint32(seg.Data[off:]))
		off += 4
		if off+n > len(seg.Data) {
			return nil, fmt.Errorf("channel %s: field %d length %d overruns segment: %w",
				name, i, n, ErrMalformedChannel)
		}
		fields = append(fields, string(seg.Data[off:off+n]))
		off += n
	}
	if off != len(seg.Data) {
		return nil, fmt.Errorf("channel %s: %d trailing bytes after %d fields: %w",
			name, len(seg.Data)-off, expectedFields, ErrMalformedChannel)
	}
	return fields, nil
}

// ConsumeChannel is the worker side of the handoff: read the fields, then
// delete the channel so nothing outlives the single exchange.
func ConsumeChannel(name string, expectedFields int) ([]string, error) {
	fields, err := ReadChannel(name, expectedFields)
	if err != nil {
		return nil, err
	}
	if err := RemoveChannel(name); err != nil {
		return nil, err
	}
	return fields, nil
}

// RemoveChannel deletes the named channel; absence is not an error.
func RemoveChannel(name string) error {
	return RemoveSegment(name)
}
