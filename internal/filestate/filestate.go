// Package filestate tracks, per zone, the total and stale byte counts of
// every data file, and decides when an archive file becomes eligible for
// garbage collection.
package filestate

import (
	"sync"

	"ozonedb/internal/bot"
)

// Entry is the bookkeeping record for one file number.
type Entry struct {
	TotalBytes uint64
	StaleBytes uint64
	IsLive     bool
}

// StaleFraction returns StaleBytes/TotalBytes, or 0 if TotalBytes is 0.
func (e Entry) StaleFraction() float64 {
	if e.TotalBytes == 0 {
		return 0
	}
	return float64(e.StaleBytes) / float64(e.TotalBytes)
}

// Map is one zone's file-state map, mutated only through its worker bot;
// readers (GC, state aggregation) take the shared read guard directly.
type Map struct {
	mu      sync.RWMutex
	entries map[uint64]Entry
	bot     *bot.Bot

	gcThreshold float64
	gcEnabled   bool
	onEligible  func(fileNumber uint64)
}

// New creates an empty file-state map. onEligible is invoked (from the
// worker's goroutine) whenever a file crosses the GC eligibility
// threshold; it should enqueue a CollectGarbage job without blocking.
func New(gcThreshold float64, gcEnabled bool, onEligible func(fileNumber uint64)) *Map {
	return &Map{
		entries:     make(map[uint64]Entry),
		bot:         bot.New(256),
		gcThreshold: gcThreshold,
		gcEnabled:   gcEnabled,
		onEligible:  onEligible,
	}
}

// Bot returns the worker handle for registry registration and Run startup.
func (m *Map) Bot() *bot.Bot { return m.bot }

// RegisterLive records a newly-opened live file with the given starting
// total size (0 for a fresh file, non-zero on recovery replay).
func (m *Map) RegisterLive(fileNumber uint64, totalBytes uint64) {
	bot.Call(m.bot, func() struct{} {
		m.mu.Lock()
		m.entries[fileNumber] = Entry{TotalBytes: totalBytes, IsLive: true}
		m.mu.Unlock()
		return struct{}{}
	})
}

// MarkArchived flips a file number from live to archive, e.g. on rotation.
func (m *Map) MarkArchived(fileNumber uint64) {
	bot.Call(m.bot, func() struct{} {
		m.mu.Lock()
		e := m.entries[fileNumber]
		e.IsLive = false
		m.entries[fileNumber] = e
		m.mu.Unlock()
		return struct{}{}
	})
}

// GrowTotal increases a file's total byte count, e.g. after an append.
func (m *Map) GrowTotal(fileNumber uint64, delta uint64) {
	bot.Call(m.bot, func() struct{} {
		m.mu.Lock()
		e := m.entries[fileNumber]
		e.TotalBytes += delta
		m.entries[fileNumber] = e
		m.mu.Unlock()
		return struct{}{}
	})
}

// MarkStale increases a file's stale byte count, e.g. when the cache
// worker notifies that a write superseded or deleted a key whose old
// location pointed at fileNumber. If the file crosses the GC eligibility
// threshold and GC is enabled, onEligible is invoked.
func (m *Map) MarkStale(fileNumber uint64, delta uint64) {
	bot.Call(m.bot, func() struct{} {
		m.mu.Lock()
		e := m.entries[fileNumber]
		e.StaleBytes += delta
		m.entries[fileNumber] = e
		eligible := !e.IsLive && m.gcEnabled && e.StaleFraction() >= m.gcThreshold
		m.mu.Unlock()
		if eligible && m.onEligible != nil {
			m.onEligible(fileNumber)
		}
		return struct{}{}
	})
}

// Remove deletes a file number's entry, e.g. after GC finalizes deletion.
func (m *Map) Remove(fileNumber uint64) {
	bot.Call(m.bot, func() struct{} {
		m.mu.Lock()
		delete(m.entries, fileNumber)
		m.mu.Unlock()
		return struct{}{}
	})
}

// Get returns the entry for fileNumber via the shared read guard.
func (m *Map) Get(fileNumber uint64) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[fileNumber]
	return e, ok
}

// Snapshot returns a copy of the whole map, for GC's end-to-end scan and
// for zone state aggregation.
func (m *Map) Snapshot() map[uint64]Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint64]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
