package collab

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// XxhashChecksummer is the default Checksummer, a little-endian 8-byte
// xxhash64 trailer over the preceding bytes.
type XxhashChecksummer struct{}

func (XxhashChecksummer) TrailerSize() int { return 8 }

func (XxhashChecksummer) Append(b []byte) ([]byte, []byte) {
	sum := xxhash.Sum64(b)
	trailer := make([]byte, 8)
	binary.LittleEndian.PutUint64(trailer, sum)
	out := make([]byte, 0, len(b)+8)
	out = append(out, b...)
	out = append(out, trailer...)
	return out, trailer
}

func (XxhashChecksummer) Verify(withTrailer []byte) bool {
	if len(withTrailer) < 8 {
		return false
	}
	body := withTrailer[:len(withTrailer)-8]
	trailer := withTrailer[len(withTrailer)-8:]
	want := xxhash.Sum64(body)
	got := binary.LittleEndian.Uint64(trailer)
	return want == got
}
