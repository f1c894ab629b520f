// Package fingerprint derives the internal key fingerprint the engine
// uses in place of caller-supplied keys once they exceed a configured
// length, per the data model's key-encoding policy.
package fingerprint

import "ozonedb/internal/collab"

// Derive returns key verbatim if its length is at or below threshold,
// otherwise the fixed-size digest produced by hasher over key.
func Derive(key []byte, threshold int, hasher collab.KeyHasher) []byte {
	if len(key) <= threshold {
		out := make([]byte, len(key))
		copy(out, key)
		return out
	}
	return hasher.Hash([][]byte{key}, nil)
}

// ShardIndex selects a shard in [0, numShards) from a fingerprint's
// leading four bytes, per §3/§4.5 of the data model.
func ShardIndex(fp []byte, numShards int) int {
	if numShards <= 0 {
		return 0
	}
	return int(leading32(fp)) % numShards
}

// ZoneIndex selects a zone in [0, numZones) from a fingerprint's leading
// four bytes, independent of the shard selection above (different moduli
// are applied to the same bytes, which is sufficient since the two counts
// are typically coprime-ish small integers chosen independently by
// configuration).
func ZoneIndex(fp []byte, numZones int) int {
	if numZones <= 0 {
		return 0
	}
	return int(leading32(fp)) % numZones
}

func leading32(fp []byte) uint32 {
	var v uint32
	for i := 0; i < 4 && i < len(fp); i++ {
		v = v<<8 | uint32(fp[i])
	}
	return v
}
