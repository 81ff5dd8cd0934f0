// Package util contains internal helpers (hashing, sharding, padding).
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import "fmt"

const (
	fnvOffset64 uint64 = 1469598103934665603
	fnvPrime64  uint64 = 1099511628211
)

// Fnv64a hashes common comparable key types using 64-bit FNV-1a.
// It is used to pick a shard for a key; it is not a cryptographic hash.
// Supported: string, []byte, fixed byte arrays of 16/32/64, every int/uint
// width, uintptr, and fmt.Stringer as a last resort.
// Unsupported key types panic: silently falling back to a constant hash would
// funnel all keys into one shard without the caller noticing.
func Fnv64a[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return hashBytes([]byte(v))
	case []byte:
		return hashBytes(v)
	case [16]byte:
		return hashBytes(v[:])
	case [32]byte:
		return hashBytes(v[:])
	case [64]byte:
		return hashBytes(v[:])

	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))

	case fmt.Stringer:
		return hashBytes([]byte(v.String()))
	default:
		panic(fmt.Sprintf("util.Fnv64a: unsupported key type %T; convert the key to string first", k))
	}
}

func hashBytes(b []byte) uint64 {
	h := fnvOffset64
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// hashUint64 hashes the 8 little-endian bytes of u without allocating.
func hashUint64(u uint64) uint64 {
	h := fnvOffset64
	for i := 0; i < 8; i++ {
		h ^= u & 0xff
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
