package memory

import (
	"context"
	"testing"

	"ozonedb/internal/config"
)

func TestLoadEmptyReturnsNil(t *testing.T) {
	s := NewStore()
	opts, err := s.Load(context.Background())
	if err != nil || opts != nil {
		t.Fatalf("expected nil,nil got %+v,%v", opts, err)
	}
}

func TestSaveLoadIsolatesCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	opts := config.Default()
	opts.NumZones = 3
	s.Save(ctx, &opts)
	opts.NumZones = 99 // mutate caller's copy after save

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NumZones != 3 {
		t.Fatalf("store should have kept its own copy, got %d", got.NumZones)
	}
}
