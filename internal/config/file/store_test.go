package file

import (
	"context"
	"path/filepath"
	"testing"

	"ozonedb/internal/config"
)

func TestLoadMissingReturnsNil(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	opts, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts != nil {
		t.Fatalf("expected nil options, got %+v", opts)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	ctx := context.Background()

	want := config.Default()
	want.NumZones = 7
	if err := s.Save(ctx, &want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.NumZones != 7 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSaveOverwritesPreviousVersion(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	ctx := context.Background()

	first := config.Default()
	first.NumZones = 1
	s.Save(ctx, &first)

	second := config.Default()
	second.NumZones = 4
	s.Save(ctx, &second)

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NumZones != 4 {
		t.Fatalf("expected overwritten value 4, got %d", got.NumZones)
	}
}
