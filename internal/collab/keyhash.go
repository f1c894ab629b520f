package collab

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2bKeyHasher is the default KeyHasher: a 32-byte BLAKE2b digest over
// the concatenation of parts, keyed by salt when non-empty.
type Blake2bKeyHasher struct{}

func (Blake2bKeyHasher) Size() int { return 32 }

func (Blake2bKeyHasher) Hash(parts [][]byte, salt []byte) []byte {
	var key []byte
	if len(salt) > 0 && len(salt) <= 64 {
		key = salt
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// blake2b.New256 only fails for an over-long key, which cannot
		// happen given the guard above; fall back to an unkeyed hash.
		h, _ = blake2b.New256(nil)
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
