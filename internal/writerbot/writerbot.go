// Package writerbot implements the per-zone writer worker: the single
// goroutine that appends records to a zone's live data+index file pair.
package writerbot

import (
	"ozonedb/internal/bot"
	"ozonedb/internal/cache"
	"ozonedb/internal/codec"
	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/filestate"
	"ozonedb/internal/model"
	"ozonedb/internal/zonefs"
)

// Writer owns one zone's live file pair. All appends within a zone are
// serialized through its Bot, making file-offset bookkeeping race-free
// without locking the files themselves.
type Writer struct {
	dir   *zonefs.Dir
	sum   collab.Checksummer
	cache *cache.Sharded
	fs    *filestate.Map
	live  *zonefs.LivePair
	bot   *bot.Bot

	allocFileNumber func() uint64
}

// New opens fileNumber as the zone's initial live pair and returns a
// ready Writer. allocFileNumber must return the next strictly-increasing
// file number in this zone each time it's called, for rotation.
func New(dir *zonefs.Dir, sum collab.Checksummer, c *cache.Sharded, fs *filestate.Map, fileNumber uint64, allocFileNumber func() uint64) (*Writer, error) {
	live, err := dir.OpenLive(fileNumber)
	if err != nil {
		return nil, err
	}
	fs.RegisterLive(fileNumber, live.DataOffset)
	return &Writer{
		dir:             dir,
		sum:             sum,
		cache:           c,
		fs:              fs,
		live:            live,
		bot:             bot.New(256),
		allocFileNumber: allocFileNumber,
	}, nil
}

// Bot returns the writer's worker handle.
func (w *Writer) Bot() *bot.Bot { return w.bot }

// appendResult is the internal reply shape for Append, run synchronously
// on the writer's Bot via bot.Call.
type appendResult struct {
	loc model.FileLocation
	err error
}

// Append writes one (key, value, metadata) record to the live file pair
// and returns its FileLocation. key is always the already-derived
// fingerprint bytes (the key-encoding policy has already been applied by
// the caller), per the data model's key-encoding policy.
func (w *Writer) Append(key, value []byte, meta model.Metadata) (model.FileLocation, error) {
	r := bot.Call(w.bot, func() appendResult {
		loc, err := w.appendLocked(key, value, meta)
		return appendResult{loc, err}
	})
	return r.loc, r.err
}

func (w *Writer) appendLocked(key, value []byte, meta model.Metadata) (model.FileLocation, error) {
	record := codec.EncodeRecord(key, value, meta, w.sum)
	dataOff := w.live.DataOffset
	if _, err := w.live.DataFile.Write(record); err != nil {
		return model.FileLocation{}, errs.Wrap(errs.KindIO, "writerbot: append data record", err)
	}
	if err := w.live.DataFile.Sync(); err != nil {
		return model.FileLocation{}, errs.Wrap(errs.KindIO, "writerbot: fsync data file", err)
	}
	w.live.DataOffset += uint64(len(record))

	loc := model.FileLocation{
		FileNumber: w.live.FileNumber,
		Start:      dataOff,
		KeyLen:     uint32(len(key)),
		ValueLen:   uint32(len(value)),
	}
	flocBytes := codec.EncodeFloc(loc, w.sum)
	if _, err := w.live.IndexFile.Write(flocBytes); err != nil {
		return model.FileLocation{}, errs.Wrap(errs.KindIO, "writerbot: append index entry", err)
	}
	if err := w.live.IndexFile.Sync(); err != nil {
		return model.FileLocation{}, errs.Wrap(errs.KindIO, "writerbot: fsync index file", err)
	}
	w.live.IndexOffset += uint64(len(flocBytes))

	w.fs.GrowTotal(loc.FileNumber, uint64(len(record)))

	if w.dir.WouldExceedLimit(w.live.DataOffset, 0) {
		if err := w.rotate(); err != nil {
			return loc, err
		}
	}
	return loc, nil
}

// rotate closes out the current live pair, marks it archived, and opens
// the next file number as the new live pair.
func (w *Writer) rotate() error {
	old := w.live.FileNumber
	if err := w.live.Close(); err != nil {
		return errs.Wrap(errs.KindIO, "writerbot: close rotated pair", err)
	}
	w.fs.MarkArchived(old)

	next := w.allocFileNumber()
	live, err := w.dir.OpenLive(next)
	if err != nil {
		return err
	}
	w.fs.RegisterLive(next, live.DataOffset)
	w.live = live
	return nil
}

// Write performs a full insert/overwrite: append the record, install the
// result in the owning cache shard, and mark the previous location's
// file stale if oldEntry is non-nil. This is the path ordinary API
// inserts use; GC instead calls Append directly and updates the cache
// itself per its own safety protocol (see package gcbot).
func (w *Writer) Write(fingerprint, value []byte, meta model.Metadata, oldEntry *cache.Entry, cacheValue bool) (model.FileLocation, error) {
	loc, err := w.Append(fingerprint, value, meta)
	if err != nil {
		return loc, err
	}
	var cv []byte
	if cacheValue {
		cv = value
	}
	w.cache.ShardFor(fingerprint).Install(fingerprint, loc, meta, cv)
	if oldEntry != nil {
		w.fs.MarkStale(oldEntry.FLoc.FileNumber, uint64(codec.RecordOnDiskSize(int(oldEntry.FLoc.KeyLen), int(oldEntry.FLoc.ValueLen), w.sum)))
	}
	return loc, nil
}

// WriteTombstone appends a tombstone record for fingerprint without
// installing anything back into the cache (the caller has already
// removed the cache entry) and marks the superseded location's file
// stale.
func (w *Writer) WriteTombstone(fingerprint, value []byte, meta model.Metadata, oldEntry *cache.Entry) (model.FileLocation, error) {
	loc, err := w.Append(fingerprint, value, meta)
	if err != nil {
		return loc, err
	}
	if oldEntry != nil {
		w.fs.MarkStale(oldEntry.FLoc.FileNumber, uint64(codec.RecordOnDiskSize(int(oldEntry.FLoc.KeyLen), int(oldEntry.FLoc.ValueLen), w.sum)))
	}
	return loc, nil
}

// LiveFileNumber reports the file number currently being written to.
func (w *Writer) LiveFileNumber() uint64 {
	return bot.Call(w.bot, func() uint64 { return w.live.FileNumber })
}

// Close closes the live file pair. Callers must stop sending jobs first.
func (w *Writer) Close() error {
	return w.live.Close()
}
