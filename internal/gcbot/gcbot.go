// Package gcbot implements the per-zone garbage-collection worker pool:
// reclaiming space from archive files by copying still-live records
// forward and deleting the original.
package gcbot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"ozonedb/internal/bot"
	"ozonedb/internal/cache"
	"ozonedb/internal/codec"
	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/filestate"
	"ozonedb/internal/logging"
	"ozonedb/internal/model"
	"ozonedb/internal/writerbot"
	"ozonedb/internal/zonefs"
)

// State is a collection run's current stage.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateRewriting
	StateFinalizing
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateRewriting:
		return "rewriting"
	case StateFinalizing:
		return "finalizing"
	case StateAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// ColdStore is the optional archival hook consulted before an archive
// file's final deletion. Implementations live in package coldstore; this
// interface is declared here, not there, so gcbot never imports a cloud
// SDK directly.
type ColdStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Pool is a fixed-size GC worker pool for one zone.
type Pool struct {
	bots      []*bot.Bot
	dir       *zonefs.Dir
	sum       collab.Checksummer
	cache     *cache.Sharded
	fs        *filestate.Map
	writer    *writerbot.Writer
	coldStore ColdStore
	logger    *slog.Logger

	mu     sync.Mutex
	states map[uint64]State
	next   int
}

// NewPool creates a pool of size GC workers for one zone.
func NewPool(size int, dir *zonefs.Dir, sum collab.Checksummer, c *cache.Sharded, fs *filestate.Map, w *writerbot.Writer, cold ColdStore, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	bots := make([]*bot.Bot, size)
	for i := range bots {
		bots[i] = bot.New(64)
	}
	return &Pool{
		bots:      bots,
		dir:       dir,
		sum:       sum,
		cache:     c,
		fs:        fs,
		writer:    w,
		coldStore: cold,
		logger:    logging.Default(logger).With("component", "gcbot"),
		states:    make(map[uint64]State),
	}
}

// Bots returns the pool's worker handles for registry registration.
func (p *Pool) Bots() []*bot.Bot { return p.bots }

// State reports the current stage of a collection run for fileNumber.
func (p *Pool) State(fileNumber uint64) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[fileNumber]
}

func (p *Pool) setState(fileNumber uint64, s State) {
	p.mu.Lock()
	p.states[fileNumber] = s
	p.mu.Unlock()
}

// Enqueue submits a CollectGarbage job for fileNumber on the next pool
// worker, round robin. It does not wait for the job, which runs
// asynchronously on the chosen worker, but it blocks while that worker's
// inbox is full.
func (p *Pool) Enqueue(fileNumber uint64) {
	p.mu.Lock()
	b := p.bots[p.next]
	p.next = (p.next + 1) % len(p.bots)
	p.mu.Unlock()

	b.Send(func() {
		p.collect(fileNumber)
	})
}

// collect runs one CollectGarbage pass for fileNumber, per the protocol
// in §4.8: scan the index end to end, rewrite still-live records forward
// through the writer, then delete the archive.
func (p *Pool) collect(fileNumber uint64) {
	p.setState(fileNumber, StateScanning)
	locs, err := p.scanIndex(fileNumber)
	if err != nil {
		p.logger.Error("gc scan failed", "file_number", fileNumber, "error", err)
		p.setState(fileNumber, StateAborted)
		return
	}

	p.setState(fileNumber, StateRewriting)
	dataFile, err := p.dir.OpenForRead(fileNumber, model.FileTypeData)
	if err != nil {
		p.logger.Error("gc open data file failed", "file_number", fileNumber, "error", err)
		p.setState(fileNumber, StateAborted)
		return
	}
	defer dataFile.Close()

	for _, loc := range locs {
		if err := p.rewriteIfLive(dataFile, loc); err != nil {
			p.logger.Warn("gc rewrite entry failed, skipping", "file_number", fileNumber, "start", loc.Start, "error", err)
		}
	}

	p.setState(fileNumber, StateFinalizing)
	if p.coldStore != nil {
		if err := p.archiveToColdStore(fileNumber); err != nil {
			p.logger.Warn("cold archival upload failed, continuing with deletion", "file_number", fileNumber, "error", err)
		}
	}
	if err := p.dir.Remove(fileNumber); err != nil {
		p.logger.Error("gc delete archive failed", "file_number", fileNumber, "error", err)
		p.setState(fileNumber, StateAborted)
		return
	}
	p.fs.Remove(fileNumber)
	p.setState(fileNumber, StateIdle)
}

// scanIndex reads an archive's index file end to end, returning every
// FileLocation it describes in order.
func (p *Pool) scanIndex(fileNumber uint64) ([]model.FileLocation, error) {
	f, err := p.dir.OpenForRead(fileNumber, model.FileTypeIndex)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entrySize := codec.FlocSize(p.sum)
	buf := make([]byte, entrySize)
	var locs []model.FileLocation
	for {
		_, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			break // truncated trailing entry, treat as absent
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, "gcbot: read index entry", err)
		}
		loc, err := codec.DecodeFloc(buf, p.sum)
		if err != nil {
			break // corrupted trailing entry, stop scanning rather than abort
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// rewriteIfLive checks whether the cache still considers loc current for
// its key; if so, copies the record forward through the writer and
// updates the cache's location, per the GC safety protocol: the cache
// worker's UpdateLocation rejects the update if a concurrent foreground
// write has already moved the key elsewhere.
func (p *Pool) rewriteIfLive(dataFile *os.File, loc model.FileLocation) error {
	size := codec.RecordOnDiskSize(int(loc.KeyLen), int(loc.ValueLen), p.sum)
	buf := make([]byte, size)
	if _, err := dataFile.ReadAt(buf, int64(loc.Start)); err != nil {
		return errs.Wrap(errs.KindIO, "gcbot: read candidate record", err)
	}
	key, value, meta, err := codec.DecodeRecord(buf, int(loc.KeyLen), int(loc.ValueLen), p.sum)
	if err != nil {
		return err // corrupted record: truly dead, nothing to preserve
	}

	shard := p.cache.ShardFor(key)
	cur, ok := shard.LookupForRead(key)
	if !ok || cur.FLoc != loc {
		return nil // superseded or deleted; record is truly dead
	}

	newLoc, err := p.writer.Append(key, value, meta)
	if err != nil {
		return err
	}
	shard.UpdateLocation(key, loc, newLoc)
	return nil
}

func (p *Pool) archiveToColdStore(fileNumber uint64) error {
	dataFile, err := p.dir.OpenForRead(fileNumber, model.FileTypeData)
	if err != nil {
		return err
	}
	defer dataFile.Close()
	data, err := io.ReadAll(dataFile)
	if err != nil {
		return err
	}
	return p.coldStore.Put(context.Background(), zonefs.FormatFileNumber(fileNumber)+".dat", data)
}
