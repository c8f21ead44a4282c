package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// --------------------------------------------------------------------------
// Seeding
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for internal hash distribution.
// Each engine instance gets its own seed so that two instances never share
// a hash layout (and tests never depend on one).
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// last-resort fallback
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Key Hashing
// --------------------------------------------------------------------------

// UintKey is the internal hashed representation of a cache key.
type UintKey uint64

// HashString hashes a string key with a seed using FNV-1a.
// FNV-1a is fast, allocation-free and distributes well for short keys.
func HashString(s string, seed uint64) UintKey {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return UintKey(hash)
}
