// Package shard maps string keys to partitions using BLAKE2b hashing.
package shard

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// FromString derives a stable partition (0..numShards-1) from an arbitrary
// string key. An optional seed namespaces the mapping so independent
// deployments sharing a transport do not collide.
func FromString(key string, numShards uint32, seed string) uint32 {
	if numShards == 0 {
		return 0
	}
	h, _ := blake2b.New(8, nil)
	if seed != "" {
		h.Write([]byte(seed))
		h.Write([]byte{0})
	}
	h.Write([]byte(key))
	sum := h.Sum(nil)
	v := binary.BigEndian.Uint64(sum)
	return uint32(v % uint64(numShards))
}
