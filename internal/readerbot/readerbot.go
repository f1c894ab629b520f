// Package readerbot implements the per-zone reader worker pool: random
// access reads of a FileLocation from any file in the zone, with a
// time-based file-handle cache.
package readerbot

import (
	"os"
	"sync"
	"time"

	"ozonedb/internal/bot"
	"ozonedb/internal/codec"
	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/model"
	"ozonedb/internal/zonefs"
)

// handleEntry is one cached, open file handle.
type handleEntry struct {
	f        *os.File
	lastUsed time.Time
}

// HandleCache caches open data-file handles per (zone, file_number),
// expiring entries that haven't been used within ttl.
type HandleCache struct {
	mu      sync.Mutex
	entries map[uint64]*handleEntry
	ttl     time.Duration
	dir     *zonefs.Dir
}

// NewHandleCache creates a handle cache backed by dir, expiring unused
// handles after ttl.
func NewHandleCache(dir *zonefs.Dir, ttl time.Duration) *HandleCache {
	return &HandleCache{entries: make(map[uint64]*handleEntry), ttl: ttl, dir: dir}
}

// Get returns an open handle to fileNumber's data file, opening and
// caching it on first use.
func (c *HandleCache) Get(fileNumber uint64) (*os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[fileNumber]; ok {
		e.lastUsed = time.Now()
		return e.f, nil
	}
	f, err := c.dir.OpenForRead(fileNumber, model.FileTypeData)
	if err != nil {
		return nil, err
	}
	c.entries[fileNumber] = &handleEntry{f: f, lastUsed: time.Now()}
	return f, nil
}

// Sweep closes and forgets handles unused for longer than the cache's
// ttl. Intended to be driven periodically by the zone supervisor's
// scheduler.
func (c *HandleCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for num, e := range c.entries {
		if now.Sub(e.lastUsed) > c.ttl {
			e.f.Close()
			delete(c.entries, num)
		}
	}
}

// CloseAll closes every cached handle, e.g. at zone shutdown.
func (c *HandleCache) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for num, e := range c.entries {
		e.f.Close()
		delete(c.entries, num)
	}
}

// Pool is a fixed-size reader worker pool for one zone.
type Pool struct {
	bots    []*bot.Bot
	handles *HandleCache
	sum     collab.Checksummer
	next    int
	mu      sync.Mutex
}

// NewPool creates a pool of size workers, each with its own inbox,
// sharing the zone's handle cache.
func NewPool(size int, handles *HandleCache, sum collab.Checksummer) *Pool {
	if size <= 0 {
		size = 1
	}
	bots := make([]*bot.Bot, size)
	for i := range bots {
		bots[i] = bot.New(256)
	}
	return &Pool{bots: bots, handles: handles, sum: sum}
}

// Bots returns the pool's worker handles, for registry registration and
// Run startup.
func (p *Pool) Bots() []*bot.Bot { return p.bots }

type readResult struct {
	value []byte
	meta  model.Metadata
	err   error
}

// Read dispatches a read of loc to the next pool worker (round robin)
// and waits for the decoded value and metadata.
func (p *Pool) Read(loc model.FileLocation) ([]byte, model.Metadata, error) {
	b := p.pick()
	r := bot.Call(b, func() readResult {
		value, meta, err := p.readLocked(loc)
		return readResult{value, meta, err}
	})
	return r.value, r.meta, r.err
}

func (p *Pool) pick() *bot.Bot {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.bots[p.next]
	p.next = (p.next + 1) % len(p.bots)
	return b
}

func (p *Pool) readLocked(loc model.FileLocation) ([]byte, model.Metadata, error) {
	f, err := p.handles.Get(loc.FileNumber)
	if err != nil {
		return nil, model.Metadata{}, err
	}
	size := codec.RecordOnDiskSize(int(loc.KeyLen), int(loc.ValueLen), p.sum)
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(loc.Start)); err != nil {
		return nil, model.Metadata{}, errs.Wrap(errs.KindIO, "readerbot: read record", err)
	}
	_, value, meta, err := codec.DecodeRecord(buf, int(loc.KeyLen), int(loc.ValueLen), p.sum)
	if err != nil {
		return nil, model.Metadata{}, err
	}
	return value, meta, nil
}
