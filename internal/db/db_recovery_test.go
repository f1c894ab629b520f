package db

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"sync"
	"testing"

	"ozonedb/internal/model"
)

func TestRecoveryAfterCleanRestart(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	cfg := Config{
		NumZones:       1,
		ZoneRoots:      []string{root},
		ChunkThreshold: 1 << 30,
		ChunkSize:      64,
		InitLoadCaches: true,
	}

	d, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	keys := make([][]byte, 50)
	values := make([][]byte, 50)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%03d", i))
		values[i] = make([]byte, 64)
		rand.Read(values[i])
		if _, err := d.Insert(ctx, keys[i], values[i], []byte("u")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	d.Close()

	d2, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	for i := range keys {
		got, _, err := d2.Get(ctx, keys[i])
		if err != nil {
			t.Fatalf("get %d after restart: %v", i, err)
		}
		if !bytes.Equal(got, values[i]) {
			t.Fatalf("value mismatch after restart for key %d", i)
		}
	}
}

// TestRecoveryTruncatesIncompleteTrailingRecord simulates a torn final
// append, whose index entry is durable but whose data-file bytes are cut
// short, by truncating the live data file after the last insert, then
// verifies restart still serves every earlier key and treats the
// truncated entry as absent rather than surfacing corruption.
func TestRecoveryTruncatesIncompleteTrailingRecord(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	cfg := Config{
		NumZones:       1,
		ZoneRoots:      []string{root},
		ChunkThreshold: 1 << 30,
		ChunkSize:      64,
		InitLoadCaches: true,
	}

	d, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	goodKeys := [][]byte{[]byte("alpha"), []byte("bravo"), []byte("charlie")}
	goodValues := [][]byte{[]byte("v-alpha"), []byte("v-bravo"), []byte("v-charlie")}
	for i, k := range goodKeys {
		if _, err := d.Insert(ctx, k, goodValues[i], []byte("u")); err != nil {
			t.Fatalf("insert %q: %v", k, err)
		}
	}
	if _, err := d.Insert(ctx, []byte("truncated-key"), bytes.Repeat([]byte("x"), 4096), []byte("u")); err != nil {
		t.Fatalf("insert truncated-key: %v", err)
	}

	z := d.zones[0]
	dataPath := z.Dir.PathFor(z.Writer.LiveFileNumber(), model.FileTypeData)
	info, err := os.Stat(dataPath)
	if err != nil {
		t.Fatalf("stat data file: %v", err)
	}
	d.Close()

	// Truncate well short of the final record's full length, as if the
	// process crashed mid-append after the index entry for it (but not
	// the data) had already reached disk.
	if err := os.Truncate(dataPath, info.Size()-2000); err != nil {
		t.Fatalf("truncate data file: %v", err)
	}

	d2, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen after simulated crash: %v", err)
	}
	defer d2.Close()

	for i, k := range goodKeys {
		got, _, err := d2.Get(ctx, k)
		if err != nil {
			t.Fatalf("get %q after crash recovery: %v", k, err)
		}
		if !bytes.Equal(got, goodValues[i]) {
			t.Fatalf("value mismatch for %q after crash recovery", k)
		}
	}

	if _, _, err := d2.Get(ctx, []byte("truncated-key")); err == nil {
		t.Fatalf("expected truncated-key to be absent after crash recovery")
	}
}

func TestGCDoesNotLoseDataUnderConcurrentWorkload(t *testing.T) {
	const numZones = 2
	const numKeys = 40
	roots := make([]string, numZones)
	for i := range roots {
		roots[i] = t.TempDir()
	}
	ctx := context.Background()
	d, err := Open(ctx, Config{
		NumZones:         numZones,
		ZoneRoots:        roots,
		DataFileMaxBytes: 4000,
		GCEnabled:        true,
		GCStaleThreshold: 0.2,
		ChunkThreshold:   1 << 30,
		ChunkSize:        64,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("gc-key-%03d", i))
	}

	var mu sync.Mutex
	last := make(map[int][]byte)
	deleted := make(map[int]bool)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for round := 0; round < 30; round++ {
				i := (worker*7 + round*3) % numKeys
				value := make([]byte, 80)
				rand.Read(value)
				if round%9 == 8 {
					if _, err := d.Delete(ctx, keys[i], []byte("u")); err == nil {
						mu.Lock()
						deleted[i] = true
						delete(last, i)
						mu.Unlock()
					}
					continue
				}
				if _, err := d.Insert(ctx, keys[i], value, []byte("u")); err != nil {
					continue
				}
				mu.Lock()
				last[i] = value
				deleted[i] = false
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	for i, want := range last {
		got, _, err := d.Get(ctx, keys[i])
		if err != nil {
			t.Fatalf("get key %d after concurrent workload: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("key %d: got %q, want last-written %q", i, got, want)
		}
	}
}

func TestCacheEvictionPreservesCorrectness(t *testing.T) {
	d, err := Open(context.Background(), Config{
		NumZones:            1,
		ZoneRoots:           []string{t.TempDir()},
		CacheSizeLimitBytes: 512, // small enough to force eviction well before all keys fit
		ChunkThreshold:      1 << 30,
		ChunkSize:           64,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	keys := make([][]byte, 64)
	values := make([][]byte, 64)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("evict-key-%03d", i))
		values[i] = make([]byte, 64)
		rand.Read(values[i])
		if _, err := d.Insert(ctx, keys[i], values[i], []byte("u")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	for i := range keys {
		got, _, err := d.Get(ctx, keys[i])
		if err != nil {
			t.Fatalf("get %d after eviction pressure: %v", i, err)
		}
		if !bytes.Equal(got, values[i]) {
			t.Fatalf("value mismatch for key %d after eviction pressure", i)
		}
	}
}

func TestFingerprintCollisionResistance(t *testing.T) {
	d := newTestDB(t, 1, 0)
	ctx := context.Background()

	// Keys sharing a long common prefix must still resolve to
	// independent entries rather than colliding on a shared fingerprint
	// truncation.
	k1 := append([]byte("shared-prefix-"), 'A')
	k2 := append([]byte("shared-prefix-"), 'B')

	if _, err := d.Insert(ctx, k1, []byte("value-one"), []byte("u")); err != nil {
		t.Fatalf("insert k1: %v", err)
	}
	if _, err := d.Insert(ctx, k2, []byte("value-two"), []byte("u")); err != nil {
		t.Fatalf("insert k2: %v", err)
	}

	got1, _, err := d.Get(ctx, k1)
	if err != nil {
		t.Fatalf("get k1: %v", err)
	}
	got2, _, err := d.Get(ctx, k2)
	if err != nil {
		t.Fatalf("get k2: %v", err)
	}
	if !bytes.Equal(got1, []byte("value-one")) || !bytes.Equal(got2, []byte("value-two")) {
		t.Fatalf("prefix-sharing keys collided: k1=%q k2=%q", got1, got2)
	}
}
