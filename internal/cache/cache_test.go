package cache

import (
	"context"
	"testing"
	"time"

	"ozonedb/internal/model"
)

func startShard(t *testing.T, s *Shard) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Bot().Run(ctx)
	return cancel
}

func TestInstallLookupDelete(t *testing.T) {
	s := NewShard(0)
	defer startShard(t, s)()

	fp := []byte("fingerprint-1")
	floc := model.FileLocation{FileNumber: 1, Start: 0, KeyLen: 3, ValueLen: 5}
	meta := model.Metadata{TimestampSecs: 1}
	s.Install(fp, floc, meta, []byte("value"))

	e, ok := s.LookupForRead(fp)
	if !ok {
		t.Fatalf("expected entry present")
	}
	if e.FLoc != floc || string(e.Value) != "value" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	deleted, ok := s.Delete(fp)
	if !ok || string(deleted.Value) != "value" {
		t.Fatalf("expected deletion to return the removed entry")
	}
	if _, ok := s.LookupForRead(fp); ok {
		t.Fatalf("expected entry gone after delete")
	}
}

func TestUpdateLocationRejectsStalePrecondition(t *testing.T) {
	s := NewShard(0)
	defer startShard(t, s)()

	fp := []byte("fp")
	oldLoc := model.FileLocation{FileNumber: 1}
	newLoc := model.FileLocation{FileNumber: 2}
	s.Install(fp, oldLoc, model.Metadata{}, nil)

	// A foreground write races ahead to file 3 before GC's UpdateLocation
	// arrives; GC's update (expecting oldLoc) must be rejected.
	racedLoc := model.FileLocation{FileNumber: 3}
	s.Install(fp, racedLoc, model.Metadata{}, nil)

	ok := s.UpdateLocation(fp, oldLoc, newLoc)
	if ok {
		t.Fatalf("expected UpdateLocation to reject a stale precondition")
	}
	e, _ := s.LookupForRead(fp)
	if e.FLoc != racedLoc {
		t.Fatalf("expected location to remain the raced write's, got %+v", e.FLoc)
	}
}

func TestEvictionPreservesLocation(t *testing.T) {
	s := NewShard(10) // tiny budget forces eviction
	defer startShard(t, s)()

	floc1 := model.FileLocation{FileNumber: 1, ValueLen: 8}
	floc2 := model.FileLocation{FileNumber: 2, ValueLen: 8}
	s.Install([]byte("a"), floc1, model.Metadata{}, []byte("12345678"))
	s.Install([]byte("b"), floc2, model.Metadata{}, []byte("87654321"))

	// Install returns only after its job has run (via bot.Call); this
	// pause is extra margin only.
	time.Sleep(10 * time.Millisecond)

	eA, ok := s.LookupForRead([]byte("a"))
	if !ok {
		t.Fatalf("expected entry a to still be present (location retained)")
	}
	if eA.FLoc != floc1 {
		t.Fatalf("expected location to survive eviction")
	}
}

func TestShardedRouting(t *testing.T) {
	sh := NewSharded(4, 0)
	if sh.NumShards() != 4 {
		t.Fatalf("expected 4 shards")
	}
	a := sh.ShardFor([]byte{0x00, 0x00, 0x00, 0x01})
	b := sh.ShardFor([]byte{0x00, 0x00, 0x00, 0x01})
	if a != b {
		t.Fatalf("expected identical fingerprints to route to the same shard")
	}
}
