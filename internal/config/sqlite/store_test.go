package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"ozonedb/internal/config"
)

func TestLoadEmptyReturnsNil(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	opts, err := s.Load(context.Background())
	if err != nil || opts != nil {
		t.Fatalf("expected nil,nil got %+v,%v", opts, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	want := config.Default()
	want.NumZones = 5
	if err := s.Save(ctx, &want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NumZones != 5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	want.NumZones = 9
	if err := s.Save(ctx, &want); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.NumZones != 9 {
		t.Fatalf("expected upsert to overwrite, got %d", got.NumZones)
	}
}
