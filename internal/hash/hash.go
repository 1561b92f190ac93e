// Package hash provides the 64-bit content checksum used by the snapshot
// codec to detect corrupted payloads.
package hash

import "github.com/cespare/xxhash/v2"

// Sum computes the xxHash64 of data.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
