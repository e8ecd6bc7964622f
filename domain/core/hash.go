package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Hash is a hex-encoded sha256 digest
type Hash string

// NewHash hashes data in one call
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (h Hash) String() string {
	return string(h)
}

// IsEmpty reports whether no hash was computed
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Hasher builds a Hash incrementally. Strings are NUL-terminated so
// adjacent fields cannot run together.
type Hasher struct {
	h   hash.Hash
	num [8]byte
}

// NewHasher starts an empty digest
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// String adds s followed by a NUL byte
func (w *Hasher) String(s string) *Hasher {
	w.h.Write([]byte(s))
	w.h.Write([]byte{0})
	return w
}

// Float adds the IEEE-754 bits of f
func (w *Hasher) Float(f float64) *Hasher {
	binary.LittleEndian.PutUint64(w.num[:], math.Float64bits(f))
	w.h.Write(w.num[:])
	return w
}

// Byte adds a single marker byte
func (w *Hasher) Byte(b byte) *Hasher {
	w.h.Write([]byte{b})
	return w
}

// Sum returns the digest of everything written so far
func (w *Hasher) Sum() Hash {
	return Hash(hex.EncodeToString(w.h.Sum(nil)))
}
