package collab

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackTermCodec is the default TermCodec: a self-describing, length-
// recoverable msgpack encoding.
type MsgpackTermCodec struct{}

func (MsgpackTermCodec) Encode(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("collab: msgpack encode: %w", err)
	}
	return b, nil
}

func (MsgpackTermCodec) Decode(b []byte, out any) error {
	if err := msgpack.Unmarshal(b, out); err != nil {
		return fmt.Errorf("collab: msgpack decode: %w", err)
	}
	return nil
}

// RawBytesCodec treats []byte values and keys as opaque, length-prefixed by
// the caller's framing rather than msgpack's own self-description. The
// engine does not use it: key/value bytes reach package codec as the
// caller's raw []byte without any TermCodec, and the record framing
// there stores the lengths explicitly.
type RawBytesCodec struct{}

func (RawBytesCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("collab: RawBytesCodec.Encode: value is not []byte")
	}
	return b, nil
}

func (RawBytesCodec) Decode(b []byte, out any) error {
	ptr, ok := out.(*[]byte)
	if !ok {
		return fmt.Errorf("collab: RawBytesCodec.Decode: out is not *[]byte")
	}
	*ptr = append((*ptr)[:0], b...)
	return nil
}
