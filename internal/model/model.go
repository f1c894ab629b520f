// Package model defines the engine's core data types: metadata, records,
// and file locations, shared by the codec, cache, and worker packages.
package model

import "time"

// UIDLen is the fixed width, in bytes, of a user identifier.
const UIDLen = 16

// Metadata is the fixed-width record stamp every stored value carries.
type Metadata struct {
	TimestampSecs  uint64
	TimestampNanos uint32
	UserID         [UIDLen]byte
}

// NowMetadata builds a Metadata stamped with now and the given user id.
// The user id is truncated or zero-padded to UIDLen.
func NowMetadata(now time.Time, userID []byte) Metadata {
	var uid [UIDLen]byte
	copy(uid[:], userID)
	return Metadata{
		TimestampSecs:  uint64(now.Unix()),
		TimestampNanos: uint32(now.Nanosecond()),
		UserID:         uid,
	}
}

// FileLocation identifies exactly where a record's bytes live on disk.
type FileLocation struct {
	FileNumber uint64
	Start      uint64
	KeyLen     uint32
	ValueLen   uint32
}

// RecordLen returns the key, value and metadata bytes of the record at
// this location. The record's on-disk size is larger: it also holds the
// 4-byte format header and the checksum trailer, whose size is a
// property of the configured Checksummer, not of FileLocation.
func (f FileLocation) RecordLen() uint64 {
	return uint64(f.KeyLen) + uint64(f.ValueLen) + MetadataSize
}

// MetadataSize is the fixed wire size of a Metadata value:
// 8 bytes timestamp seconds + 4 bytes nanos + UIDLen bytes user id.
const MetadataSize = 8 + 4 + UIDLen

// FileType distinguishes the two files of a zone's file pair.
type FileType int

const (
	FileTypeData FileType = iota
	FileTypeIndex
)

func (t FileType) Ext() string {
	if t == FileTypeIndex {
		return "ind"
	}
	return "dat"
}

// ValueKind tags the kind of a stored value, distinguishing ordinary
// values, chunk-set head records, chunk records, and tombstones.
type ValueKind byte

const (
	ValueKindPlain ValueKind = iota
	ValueKindHead
	ValueKindChunk
	ValueKindTombstone
)

// ChunkKey is the synthetic 5-tuple key used for head and chunk records.
type ChunkKey struct {
	SetID     [16]byte
	Index     uint64
	TotalLen  uint64
	NumChunks uint64
	ChunkSize uint64
}
