package ipc

import (
	// go-digest only maps algorithm names to crypto.Hash values; the hash
	// itself must be linked in or FromString panics at runtime.
	_ "crypto/sha512"

	"github.com/opencontainers/go-digest"
)

// statusNameLen is part of the wire protocol: a conforming worker must
// reproduce the same hash and truncation to find the status region.
const statusNameLen = 32

// StatusRegionName derives the mount-status segment name from the parameter
// channel name: lowercase hex SHA-512, truncated to 32 characters. Both
// processes compute it independently, so only the channel name ever needs
// to cross a process boundary.
func StatusRegionName(channelName string) string {
	return digest.SHA512.FromString(channelName).Encoded()[:statusNameLen]
}
