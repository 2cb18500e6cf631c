package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

// DigestOf hashes raw bytes.
func DigestOf(b []byte) Digest {
	return sha256.Sum256(b)
}

// Combine builds a key from a content hash and extra parts:
// H(content || len(p1) || p1 || ...). Lengths keep ("ab","c") and ("a","bc") apart.
func Combine(content Digest, parts ...string) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, p := range parts {
		var n [4]byte
		l := len(p)
		n[0], n[1], n[2], n[3] = byte(l>>24), byte(l>>16), byte(l>>8), byte(l)
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(p))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
