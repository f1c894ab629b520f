package codec

import (
	"bytes"
	"testing"
	"time"

	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/model"
)

func TestRecordRoundTrip(t *testing.T) {
	sum := collab.XxhashChecksummer{}
	key := []byte("hello-key")
	value := []byte("hello-value-bytes")
	meta := model.NowMetadata(time.Unix(1700000000, 123), []byte("user-1234567890"))

	enc := EncodeRecord(key, value, meta, sum)
	gotKey, gotValue, gotMeta, err := DecodeRecord(enc, len(key), len(value), sum)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(gotKey, key) {
		t.Fatalf("key mismatch: got %q want %q", gotKey, key)
	}
	if !bytes.Equal(gotValue, value) {
		t.Fatalf("value mismatch: got %q want %q", gotValue, value)
	}
	if gotMeta != meta {
		t.Fatalf("metadata mismatch: got %+v want %+v", gotMeta, meta)
	}
}

func TestRecordCorruptionDetected(t *testing.T) {
	sum := collab.XxhashChecksummer{}
	enc := EncodeRecord([]byte("k"), []byte("v"), model.Metadata{}, sum)
	enc[0] ^= 0xFF
	_, _, _, err := DecodeRecord(enc, 1, 1, sum)
	if !errs.Is(err, errs.KindCorruption) {
		t.Fatalf("expected corruption error, got %v", err)
	}
}

func TestFlocRoundTrip(t *testing.T) {
	sum := collab.XxhashChecksummer{}
	loc := model.FileLocation{FileNumber: 7, Start: 4096, KeyLen: 10, ValueLen: 256}
	enc := EncodeFloc(loc, sum)
	if len(enc) != FlocSize(sum) {
		t.Fatalf("encoded size = %d, want %d", len(enc), FlocSize(sum))
	}
	got, err := DecodeFloc(enc, sum)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != loc {
		t.Fatalf("floc mismatch: got %+v want %+v", got, loc)
	}
}

func TestFlocCorruptionDetected(t *testing.T) {
	sum := collab.XxhashChecksummer{}
	enc := EncodeFloc(model.FileLocation{FileNumber: 1, Start: 1, KeyLen: 1, ValueLen: 1}, sum)
	enc[len(enc)-1] ^= 0xFF
	_, err := DecodeFloc(enc, sum)
	if !errs.Is(err, errs.KindCorruption) {
		t.Fatalf("expected corruption error, got %v", err)
	}
}
