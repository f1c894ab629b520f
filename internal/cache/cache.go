// Package cache implements the engine's sharded in-memory cache: a map
// from key fingerprint to cached value, metadata, and file location,
// partitioned into shards each serialized by its own cache worker bot.
package cache

import (
	"sync"

	"ozonedb/internal/bot"
	"ozonedb/internal/fingerprint"
	"ozonedb/internal/model"
)

// Entry is one cache record: the file location is always authoritative;
// Value is nil once evicted.
type Entry struct {
	FLoc  model.FileLocation
	Meta  model.Metadata
	Value []byte
}

// Shard is one partition of the cache, guarded by its own cache worker.
// Reads may take the shared RLock directly; all mutation goes through
// the shard's Bot so installs/deletes/updates are totally ordered.
type Shard struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	order      []string // insertion-order queue, approximating LRU
	totalBytes int64
	limitBytes int64
	bot        *bot.Bot
}

// NewShard creates an empty shard with the given eviction byte budget.
// A limitBytes of 0 means unbounded.
func NewShard(limitBytes int64) *Shard {
	return &Shard{
		entries:    make(map[string]Entry),
		limitBytes: limitBytes,
		bot:        bot.New(64),
	}
}

// Bot returns the shard's worker, for registry registration and Run
// startup by the zone supervisor.
func (s *Shard) Bot() *bot.Bot { return s.bot }

// Install inserts or overwrites the entry for fingerprint. If value is
// non-nil its length is added to the accounting total; once the total
// exceeds limitBytes, the least-recently-installed entries with a cached
// value are evicted (their file_location is retained) until back under
// budget.
func (s *Shard) Install(fingerprint []byte, floc model.FileLocation, meta model.Metadata, value []byte) {
	bot.Call(s.bot, func() struct{} {
		s.installLocked(fingerprint, floc, meta, value)
		return struct{}{}
	})
}

func (s *Shard) installLocked(fingerprint []byte, floc model.FileLocation, meta model.Metadata, value []byte) {
	key := string(fingerprint)
	s.mu.Lock()
	if old, ok := s.entries[key]; ok && old.Value != nil {
		s.totalBytes -= int64(len(old.Value))
	} else {
		s.order = append(s.order, key)
	}
	s.entries[key] = Entry{FLoc: floc, Meta: meta, Value: value}
	if value != nil {
		s.totalBytes += int64(len(value))
	}
	s.mu.Unlock()
	s.evictIfOverBudget()
}

func (s *Shard) evictIfOverBudget() {
	if s.limitBytes <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	for s.totalBytes > s.limitBytes && i < len(s.order) {
		key := s.order[i]
		e, ok := s.entries[key]
		if ok && e.Value != nil {
			s.totalBytes -= int64(len(e.Value))
			e.Value = nil
			s.entries[key] = e
		}
		i++
	}
	if i > 0 {
		s.order = s.order[i:]
	}
}

// LookupForRead returns the entry for fingerprint, if present.
func (s *Shard) LookupForRead(fingerprint []byte) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[string(fingerprint)]
	return e, ok
}

// Delete removes the entry for fingerprint, returning it if present so
// the caller can charge the old file's stale-byte accounting.
func (s *Shard) Delete(fingerprint []byte) (Entry, bool) {
	return bot.Call(s.bot, func() entryOrNot {
		key := string(fingerprint)
		s.mu.Lock()
		defer s.mu.Unlock()
		e, ok := s.entries[key]
		if ok {
			if e.Value != nil {
				s.totalBytes -= int64(len(e.Value))
			}
			delete(s.entries, key)
		}
		return entryOrNot{e, ok}
	}).unpack()
}

type entryOrNot struct {
	e  Entry
	ok bool
}

func (r entryOrNot) unpack() (Entry, bool) { return r.e, r.ok }

// UpdateLocation is called by GC after rewriting a still-live record
// forward. It is accepted only if the currently-recorded location still
// equals oldLoc and its file number is older than newLoc's; a concurrent
// foreground write therefore always wins.
func (s *Shard) UpdateLocation(fingerprint []byte, oldLoc, newLoc model.FileLocation) bool {
	return bot.Call(s.bot, func() bool {
		key := string(fingerprint)
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.entries[key]
		if !ok || cur.FLoc != oldLoc || cur.FLoc.FileNumber >= newLoc.FileNumber {
			return false
		}
		cur.FLoc = newLoc
		s.entries[key] = cur
		return true
	})
}

// SizeBytes reports the current cached-value byte total, for the
// cache_size_bytes state the database API exposes.
func (s *Shard) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBytes
}

// Sharded owns a fixed number of shards for one zone.
type Sharded struct {
	shards []*Shard
}

// NewSharded creates numShards shards, each with an equal fraction of
// totalLimitBytes (0 meaning unbounded for all).
func NewSharded(numShards int, totalLimitBytes int64) *Sharded {
	if numShards <= 0 {
		numShards = 1
	}
	perShard := int64(0)
	if totalLimitBytes > 0 {
		perShard = totalLimitBytes / int64(numShards)
		if perShard <= 0 {
			perShard = 1
		}
	}
	shards := make([]*Shard, numShards)
	for i := range shards {
		shards[i] = NewShard(perShard)
	}
	return &Sharded{shards: shards}
}

// NumShards returns the shard count.
func (s *Sharded) NumShards() int { return len(s.shards) }

// ShardFor returns the shard owning fp.
func (s *Sharded) ShardFor(fp []byte) *Shard {
	return s.shards[fingerprint.ShardIndex(fp, len(s.shards))]
}

// Shard returns the shard at idx directly, for worker wiring at startup.
func (s *Sharded) Shard(idx int) *Shard { return s.shards[idx] }

// TotalBytes sums SizeBytes across all shards.
func (s *Sharded) TotalBytes() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.SizeBytes()
	}
	return total
}
