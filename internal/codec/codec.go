// Package codec implements the engine's value codec: encoding and
// decoding of on-disk (key, value, metadata, checksum) records and of
// index-file file-location entries.
//
// Key and value bytes are expected to already be in their term-encoded
// form (produced by a collab.TermCodec at the API boundary); this package
// only concerns itself with framing and checksumming, mirroring the
// teacher's record.go split between term encoding and record framing.
package codec

import (
	"encoding/binary"
	"fmt"

	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/format"
	"ozonedb/internal/model"
)

const (
	recordVersion = 1
	flocVersion   = 1
)

// EncodeRecord concatenates key, value, and the wire form of metadata,
// then appends a checksum trailer covering everything before it.
func EncodeRecord(key, value []byte, meta model.Metadata, sum collab.Checksummer) []byte {
	body := make([]byte, 0, format.HeaderSize+len(key)+len(value)+model.MetadataSize)
	hdr := format.Header{Type: format.TypeRecord, Version: recordVersion}
	var hdrBuf [format.HeaderSize]byte
	hdr.EncodeInto(hdrBuf[:])
	body = append(body, hdrBuf[:]...)
	body = append(body, key...)
	body = append(body, value...)
	body = appendMetadata(body, meta)
	framed, _ := sum.Append(body)
	return framed
}

// DecodeRecord verifies the checksum trailer and splits the body back
// into key, value, and metadata given their expected lengths.
func DecodeRecord(b []byte, expectedKeyLen, expectedValueLen int, sum collab.Checksummer) ([]byte, []byte, model.Metadata, error) {
	if !sum.Verify(b) {
		return nil, nil, model.Metadata{}, errs.Wrap(errs.KindCorruption, "record checksum mismatch", nil)
	}
	body := b[:len(b)-sum.TrailerSize()]
	if _, err := format.DecodeAndValidate(body, format.TypeRecord, recordVersion); err != nil {
		return nil, nil, model.Metadata{}, errs.Wrap(errs.KindCorruption, "record header invalid", err)
	}
	want := format.HeaderSize + expectedKeyLen + expectedValueLen + model.MetadataSize
	if len(body) != want {
		return nil, nil, model.Metadata{}, errs.Wrap(errs.KindCorruption, "record length mismatch", nil)
	}
	off := format.HeaderSize
	key := append([]byte(nil), body[off:off+expectedKeyLen]...)
	off += expectedKeyLen
	value := append([]byte(nil), body[off:off+expectedValueLen]...)
	off += expectedValueLen
	meta, err := decodeMetadata(body[off:])
	if err != nil {
		return nil, nil, model.Metadata{}, err
	}
	return key, value, meta, nil
}

// EncodeFloc produces the fixed-size, checksummed framing of a FileLocation
// used by index files.
func EncodeFloc(loc model.FileLocation, sum collab.Checksummer) []byte {
	hdr := format.Header{Type: format.TypeFileLocation, Version: flocVersion}
	body := make([]byte, format.HeaderSize+8+8+4+4)
	hdr.EncodeInto(body[:format.HeaderSize])
	off := format.HeaderSize
	binary.BigEndian.PutUint64(body[off:], loc.FileNumber)
	off += 8
	binary.BigEndian.PutUint64(body[off:], loc.Start)
	off += 8
	binary.BigEndian.PutUint32(body[off:], loc.KeyLen)
	off += 4
	binary.BigEndian.PutUint32(body[off:], loc.ValueLen)
	framed, _ := sum.Append(body)
	return framed
}

// FlocSize is the total on-disk size of one encoded FileLocation entry,
// given a checksummer's trailer size.
func FlocSize(sum collab.Checksummer) int {
	return format.HeaderSize + 8 + 8 + 4 + 4 + sum.TrailerSize()
}

// RecordOnDiskSize returns the total number of bytes a record with the
// given key/value lengths occupies on disk, including the format header
// and checksum trailer.
func RecordOnDiskSize(keyLen, valueLen int, sum collab.Checksummer) int {
	return format.HeaderSize + keyLen + valueLen + model.MetadataSize + sum.TrailerSize()
}

// DecodeFloc verifies the checksum and decodes a FileLocation entry.
func DecodeFloc(b []byte, sum collab.Checksummer) (model.FileLocation, error) {
	if !sum.Verify(b) {
		return model.FileLocation{}, errs.Wrap(errs.KindCorruption, "file-location checksum mismatch", nil)
	}
	body := b[:len(b)-sum.TrailerSize()]
	if _, err := format.DecodeAndValidate(body, format.TypeFileLocation, flocVersion); err != nil {
		return model.FileLocation{}, errs.Wrap(errs.KindCorruption, "file-location header invalid", err)
	}
	off := format.HeaderSize
	loc := model.FileLocation{
		FileNumber: binary.BigEndian.Uint64(body[off:]),
		Start:      binary.BigEndian.Uint64(body[off+8:]),
		KeyLen:     binary.BigEndian.Uint32(body[off+16:]),
		ValueLen:   binary.BigEndian.Uint32(body[off+20:]),
	}
	return loc, nil
}

func appendMetadata(buf []byte, meta model.Metadata) []byte {
	var tmp [model.MetadataSize]byte
	binary.BigEndian.PutUint64(tmp[0:8], meta.TimestampSecs)
	binary.BigEndian.PutUint32(tmp[8:12], meta.TimestampNanos)
	copy(tmp[12:12+model.UIDLen], meta.UserID[:])
	return append(buf, tmp[:]...)
}

func decodeMetadata(b []byte) (model.Metadata, error) {
	if len(b) != model.MetadataSize {
		return model.Metadata{}, fmt.Errorf("codec: metadata slice has wrong length %d", len(b))
	}
	var meta model.Metadata
	meta.TimestampSecs = binary.BigEndian.Uint64(b[0:8])
	meta.TimestampNanos = binary.BigEndian.Uint32(b[8:12])
	copy(meta.UserID[:], b[12:12+model.UIDLen])
	return meta, nil
}
