package coldstore

import (
	"context"
	"testing"

	"ozonedb/internal/config"
)

func TestNewNoneReturnsNil(t *testing.T) {
	s, err := New(context.Background(), config.ColdStoreConfig{Kind: "none"})
	if err != nil || s != nil {
		t.Fatalf("expected nil,nil got %v,%v", s, err)
	}
	s, err = New(context.Background(), config.ColdStoreConfig{})
	if err != nil || s != nil {
		t.Fatalf("expected nil,nil for empty kind, got %v,%v", s, err)
	}
}

func TestNewUnknownKindErrors(t *testing.T) {
	_, err := New(context.Background(), config.ColdStoreConfig{Kind: "carrier-pigeon"})
	if err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), "", "")
	if err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}

func TestNewGCSRequiresBucket(t *testing.T) {
	_, err := NewGCSStore(context.Background(), "", "")
	if err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}

func TestNewAzblobRequiresContainer(t *testing.T) {
	_, err := NewAzblobStore(context.Background(), "", "")
	if err == nil {
		t.Fatalf("expected error for empty container")
	}
}
