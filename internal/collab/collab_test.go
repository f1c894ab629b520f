package collab

import (
	"bytes"
	"testing"
)

func TestXxhashChecksummerRoundTrip(t *testing.T) {
	var c XxhashChecksummer
	body := []byte("the quick brown fox")
	framed, trailer := c.Append(body)
	if len(trailer) != c.TrailerSize() {
		t.Fatalf("trailer size = %d, want %d", len(trailer), c.TrailerSize())
	}
	if !c.Verify(framed) {
		t.Fatalf("expected verify to succeed")
	}
	framed[0] ^= 0xFF
	if c.Verify(framed) {
		t.Fatalf("expected verify to fail after corruption")
	}
}

func TestChaCha20Poly1305RoundTrip(t *testing.T) {
	var e ChaCha20Poly1305Encrypter
	key := bytes.Repeat([]byte{0x42}, 32)
	plain := []byte("super secret value")
	ct, err := e.Encrypt(plain, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	got, err := e.Decrypt(ct, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plain)
	}
}

func TestIdentityEncrypter(t *testing.T) {
	var e IdentityEncrypter
	plain := []byte("untouched")
	ct, _ := e.Encrypt(plain, nil)
	if !bytes.Equal(ct, plain) {
		t.Fatalf("identity encrypter must not modify bytes")
	}
}

func TestBlake2bKeyHasherDeterministic(t *testing.T) {
	var h Blake2bKeyHasher
	parts := [][]byte{[]byte("part-a"), []byte("part-b")}
	a := h.Hash(parts, nil)
	b := h.Hash(parts, nil)
	if !bytes.Equal(a, b) {
		t.Fatalf("expected deterministic hash")
	}
	if len(a) != h.Size() {
		t.Fatalf("hash size = %d, want %d", len(a), h.Size())
	}
	other := h.Hash([][]byte{[]byte("part-a"), []byte("part-c")}, nil)
	if bytes.Equal(a, other) {
		t.Fatalf("expected different parts to hash differently")
	}
}

func TestMsgpackTermCodecRoundTrip(t *testing.T) {
	var c MsgpackTermCodec
	in := map[string]int{"a": 1, "b": 2}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out map[string]int
	if err := c.Decode(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["a"] != 1 || out["b"] != 2 {
		t.Fatalf("round trip mismatch: %v", out)
	}
}
