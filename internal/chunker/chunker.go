// Package chunker splits oversized values into deterministically keyed
// parts, and reassembles them on read.
package chunker

import (
	"crypto/rand"
	"math"

	"github.com/google/uuid"

	"ozonedb/internal/errs"
	"ozonedb/internal/model"
)

// Config holds the chunker's threshold and chunk size, matching the
// rest_chunk_threshold / rest_chunk_bytes configuration options.
type Config struct {
	Threshold int
	ChunkSize int
	// Pad, if true, pads the final chunk to ChunkSize with random bytes;
	// the true length is always recoverable from the head record's
	// TotalLen field.
	Pad bool
}

// Plan is the result of splitting one oversized value: a head record
// value plus the ordered list of chunk (key, value) pairs to store
// alongside it.
type Plan struct {
	Head   model.ChunkKey
	Chunks []ChunkPart
}

// ChunkPart is one synthetic (key, value) pair produced by a split.
type ChunkPart struct {
	Key   model.ChunkKey
	Value []byte
}

// NeedsChunking reports whether a value of this length exceeds cfg's
// threshold and must be split.
func (cfg Config) NeedsChunking(valueLen int) bool {
	return cfg.Threshold > 0 && valueLen > cfg.Threshold
}

// Split divides value into fixed-size chunks. Returns errs.Capacity if
// the resulting chunk count cannot be represented.
func (cfg Config) Split(value []byte) (Plan, error) {
	if cfg.ChunkSize <= 0 {
		return Plan{}, errs.New(errs.KindConfig, "chunker: chunk size must be positive")
	}
	totalLen := uint64(len(value))
	numChunks := (totalLen + uint64(cfg.ChunkSize) - 1) / uint64(cfg.ChunkSize)
	if numChunks == 0 {
		numChunks = 1
	}
	if numChunks > math.MaxUint64/2 {
		return Plan{}, errs.New(errs.KindCapacity, "chunker: chunk count exceeds representable limit")
	}

	setID := uuid.New()
	var setIDBytes [16]byte
	copy(setIDBytes[:], setID[:])

	head := model.ChunkKey{
		SetID:     setIDBytes,
		Index:     0,
		TotalLen:  totalLen,
		NumChunks: numChunks,
		ChunkSize: uint64(cfg.ChunkSize),
	}

	parts := make([]ChunkPart, 0, numChunks)
	for i := uint64(0); i < numChunks; i++ {
		start := i * uint64(cfg.ChunkSize)
		end := start + uint64(cfg.ChunkSize)
		if end > totalLen {
			end = totalLen
		}
		chunk := make([]byte, cfg.ChunkSize)
		n := copy(chunk, value[start:end])
		if n < cfg.ChunkSize {
			if cfg.Pad {
				if _, err := rand.Read(chunk[n:]); err != nil {
					return Plan{}, errs.Wrap(errs.KindIO, "chunker: pad final chunk", err)
				}
			} else {
				chunk = chunk[:n]
			}
		}
		parts = append(parts, ChunkPart{
			Key: model.ChunkKey{
				SetID:     setIDBytes,
				Index:     i + 1,
				TotalLen:  totalLen,
				NumChunks: numChunks,
				ChunkSize: uint64(cfg.ChunkSize),
			},
			Value: chunk,
		})
	}

	return Plan{Head: head, Chunks: parts}, nil
}

// Reassemble concatenates chunk values in index order and truncates any
// padding on the final chunk using head.TotalLen.
func Reassemble(head model.ChunkKey, chunkValues [][]byte) ([]byte, error) {
	out := make([]byte, 0, head.TotalLen)
	for _, v := range chunkValues {
		out = append(out, v...)
	}
	if uint64(len(out)) < head.TotalLen {
		return nil, errs.New(errs.KindCorruption, "chunker: reassembled value shorter than recorded total length")
	}
	return out[:head.TotalLen], nil
}
