package chunker

import (
	"bytes"
	"testing"
)

func TestSplitAndReassemble(t *testing.T) {
	cfg := Config{Threshold: 1500, ChunkSize: 64}
	value := bytes.Repeat([]byte{0xAB}, 10000)
	if !cfg.NeedsChunking(len(value)) {
		t.Fatalf("expected value to need chunking")
	}
	plan, err := cfg.Split(value)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	wantChunks := (10000 + 63) / 64
	if plan.Head.NumChunks != uint64(wantChunks) {
		t.Fatalf("num chunks = %d, want %d", plan.Head.NumChunks, wantChunks)
	}
	if len(plan.Chunks) != int(wantChunks) {
		t.Fatalf("len(plan.Chunks) = %d, want %d", len(plan.Chunks), wantChunks)
	}

	values := make([][]byte, len(plan.Chunks))
	for i, c := range plan.Chunks {
		if c.Key.Index != uint64(i+1) {
			t.Fatalf("chunk %d has index %d", i, c.Key.Index)
		}
		if c.Key.SetID != plan.Head.SetID {
			t.Fatalf("chunk %d has mismatched set id", i)
		}
		values[i] = c.Value
	}

	got, err := Reassemble(plan.Head, values)
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("reassembled value mismatch")
	}
}

func TestSplitSmallValueStillProducesOneChunk(t *testing.T) {
	cfg := Config{Threshold: 1500, ChunkSize: 64}
	value := []byte("tiny")
	if cfg.NeedsChunking(len(value)) {
		t.Fatalf("did not expect chunking below threshold")
	}
	plan, err := cfg.Split(value)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(plan.Chunks) != 1 {
		t.Fatalf("expected a single chunk for a short value, got %d", len(plan.Chunks))
	}
}

func TestPaddingRecoversExactLength(t *testing.T) {
	cfg := Config{Threshold: 0, ChunkSize: 8, Pad: true}
	value := []byte("12345") // shorter than chunk size
	plan, err := cfg.Split(value)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(plan.Chunks[0].Value) != 8 {
		t.Fatalf("expected padded chunk of length 8, got %d", len(plan.Chunks[0].Value))
	}
	got, err := Reassemble(plan.Head, [][]byte{plan.Chunks[0].Value})
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	if string(got) != "12345" {
		t.Fatalf("reassembled = %q, want %q", got, "12345")
	}
}
