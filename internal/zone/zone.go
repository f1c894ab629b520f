// Package zone implements the zone supervisor: the lifecycle owner of
// one zone's writer, reader pool, cache, file-state map, and GC pool,
// including startup recovery and scheduled housekeeping.
package zone

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"ozonedb/internal/bot"
	"ozonedb/internal/cache"
	"ozonedb/internal/codec"
	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/filestate"
	"ozonedb/internal/gcbot"
	"ozonedb/internal/logging"
	"ozonedb/internal/model"
	"ozonedb/internal/readerbot"
	"ozonedb/internal/writerbot"
	"ozonedb/internal/zonefs"
)

// Config holds one zone's tunables, drawn from the database-wide
// configuration options of §6.4, resolved per zone_overrides.
type Config struct {
	Root                 string
	DataFileMaxBytes     int64
	CacheSizeLimitBytes  int64
	BytesBeforeHashing   int
	NumCacheShards       int
	NumReaderBots        int
	NumGCBots            int
	GCStaleThreshold     float64
	GCEnabled            bool
	InitLoadCaches       bool
	ZoneStateUpdateEvery time.Duration
	HandleCacheTTL       time.Duration
}

// Zone owns one zone's workers and on-disk directory.
type Zone struct {
	Index  int
	Dir    *zonefs.Dir
	Sum    collab.Checksummer
	Cache  *cache.Sharded
	FState *filestate.Map
	Writer  *writerbot.Writer
	Reader  *readerbot.Pool
	GC      *gcbot.Pool
	Handles *readerbot.HandleCache

	registry  *bot.Registry
	logger    *slog.Logger
	nextFile  atomic.Uint64
	scheduler gocron.Scheduler
}

// New creates a zone's workers, performing startup recovery before
// returning, per §4.9: enumerate existing files, replay indexes to
// repopulate the cache and file-state map, then open the live pair.
func New(ctx context.Context, index int, cfg Config, sum collab.Checksummer, cold gcbot.ColdStore, logger *slog.Logger) (*Zone, error) {
	logger = logging.Default(logger).With("component", "zone", "zone_index", index)

	dir, err := zonefs.NewDir(cfg.Root, cfg.DataFileMaxBytes)
	if err != nil {
		return nil, err
	}

	z := &Zone{
		Index:    index,
		Dir:      dir,
		Sum:      sum,
		Cache:    cache.NewSharded(cfg.NumCacheShards, cfg.CacheSizeLimitBytes),
		registry: bot.NewRegistry(),
		logger:   logger,
	}

	z.FState = filestate.New(cfg.GCStaleThreshold, cfg.GCEnabled, func(fileNumber uint64) {
		z.GC.Enqueue(fileNumber)
	})
	// Recovery replay and writerbot.New call the file-state map and the
	// cache shards synchronously, so their workers run from here on; they
	// join the registry after startWorkers so it does not launch them twice.
	go z.FState.Bot().Run(ctx)
	for i := 0; i < z.Cache.NumShards(); i++ {
		go z.Cache.Shard(i).Bot().Run(ctx)
	}

	nums, err := dir.ExistingFileNumbers()
	if err != nil {
		return nil, err
	}
	var liveFileNumber uint64
	if len(nums) > 0 {
		liveFileNumber = nums[len(nums)-1]
		z.nextFile.Store(liveFileNumber)
	}

	if cfg.InitLoadCaches {
		if err := z.replay(nums); err != nil {
			return nil, err
		}
	}

	writer, err := writerbot.New(dir, sum, z.Cache, z.FState, liveFileNumber, z.allocFileNumber)
	if err != nil {
		return nil, err
	}
	z.Writer = writer
	z.registry.Register("writer", writer.Bot())

	z.Handles = readerbot.NewHandleCache(dir, cfg.HandleCacheTTL)
	z.Reader = readerbot.NewPool(cfg.NumReaderBots, z.Handles, sum)
	for i, b := range z.Reader.Bots() {
		z.registry.Register(readerName(i), b)
	}

	z.GC = gcbot.NewPool(cfg.NumGCBots, dir, sum, z.Cache, z.FState, writer, cold, logger)
	for i, b := range z.GC.Bots() {
		z.registry.Register(gcName(i), b)
	}

	if err := z.startWorkers(ctx); err != nil {
		return nil, err
	}

	z.registry.Register("filestate", z.FState.Bot())
	for i := 0; i < z.Cache.NumShards(); i++ {
		z.registry.Register(cacheShardName(i), z.Cache.Shard(i).Bot())
	}

	if cfg.ZoneStateUpdateEvery > 0 {
		if err := z.startScheduler(cfg); err != nil {
			return nil, err
		}
	}

	return z, nil
}

func readerName(i int) string     { return "reader-" + itoa(i) }
func gcName(i int) string         { return "gc-" + itoa(i) }
func cacheShardName(i int) string { return "cache-shard-" + itoa(i) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// startWorkers launches the Run loop of every worker registered so far
// (writer, readers, GC workers), all concurrently and in no fixed order.
func (z *Zone) startWorkers(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range z.registry.All() {
		b := b
		g.Go(func() error {
			b.Run(gctx)
			return nil
		})
	}
	// errgroup.Wait would block zone startup until shutdown; workers run
	// for the zone's lifetime, so we only use errgroup to fan the starts
	// out concurrently, not to await completion here.
	return nil
}

// allocFileNumber returns the next strictly-increasing file number for
// this zone.
func (z *Zone) allocFileNumber() uint64 {
	return z.nextFile.Add(1)
}

// replay repopulates the cache's file_location entries and the
// file-state map's total bytes by reading each zone file's index file in
// ascending order, without reading any values. If a data file is shorter
// than an index entry's offset implies, the index is treated as
// truncated at that point per the recovery procedure's step 3.
func (z *Zone) replay(nums []uint64) error {
	for i, num := range nums {
		isLive := i == len(nums)-1
		if err := z.replayOne(num, isLive); err != nil {
			return err
		}
	}
	return nil
}

func (z *Zone) replayOne(fileNumber uint64, isLive bool) error {
	dataFile, err := z.Dir.OpenForRead(fileNumber, model.FileTypeData)
	if err != nil {
		return errs.Wrap(errs.KindInit, "zone: open data file during recovery", err)
	}
	defer dataFile.Close()
	dataInfo, err := dataFile.Stat()
	if err != nil {
		return errs.Wrap(errs.KindInit, "zone: stat data file during recovery", err)
	}
	dataSize := uint64(dataInfo.Size())

	indexFile, err := z.Dir.OpenForRead(fileNumber, model.FileTypeIndex)
	if err != nil {
		return errs.Wrap(errs.KindInit, "zone: open index file during recovery", err)
	}
	defer indexFile.Close()

	entrySize := codec.FlocSize(z.Sum)
	buf := make([]byte, entrySize)
	var totalBytes uint64
	for {
		if _, err := io.ReadFull(indexFile, buf); err != nil {
			break // EOF or truncated trailing entry
		}
		loc, derr := codec.DecodeFloc(buf, z.Sum)
		if derr != nil {
			break // corrupted trailing entry
		}
		recordSize := uint64(codec.RecordOnDiskSize(int(loc.KeyLen), int(loc.ValueLen), z.Sum))
		if loc.Start+recordSize > dataSize {
			break // index refers beyond the data file's length
		}
		record := make([]byte, recordSize)
		if _, err := dataFile.ReadAt(record, int64(loc.Start)); err != nil {
			return errs.Wrap(errs.KindInit, "zone: read record during recovery", err)
		}
		key, _, meta, derr := codec.DecodeRecord(record, int(loc.KeyLen), int(loc.ValueLen), z.Sum)
		if derr != nil {
			break // corrupted record, stop trusting the rest of this file
		}
		z.Cache.ShardFor(key).Install(key, loc, meta, nil)
		totalBytes += recordSize
	}
	z.FState.RegisterLive(fileNumber, totalBytes)
	if !isLive {
		z.FState.MarkArchived(fileNumber)
	}
	return nil
}

// startScheduler registers the zone's periodic housekeeping with gocron
// rather than an ad-hoc goroutine timer: one job, run every
// ZoneStateUpdateEvery, that sweeps expired handles from the reader
// handle cache. GC eligibility is not swept here; it is checked inline
// each time MarkStale runs.
func (z *Zone) startScheduler(cfg Config) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return errs.Wrap(errs.KindInit, "zone: create scheduler", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(cfg.ZoneStateUpdateEvery),
		gocron.NewTask(func() { z.Handles.Sweep() }),
	); err != nil {
		return errs.Wrap(errs.KindInit, "zone: schedule handle-cache sweep", err)
	}
	z.scheduler = s
	s.Start()
	return nil
}

// Stop halts the scheduler and closes the cached read handles and the
// writer's live file pair. It does not close the worker bots; their Run
// loops end when the context passed to New is cancelled.
func (z *Zone) Stop() {
	if z.scheduler != nil {
		z.scheduler.Shutdown()
	}
	z.Handles.CloseAll()
	z.Writer.Close()
}

// State is the zone's aggregated status, for the database API's exposed
// per-zone state.
type State struct {
	Index           int
	LiveFileNumber  uint64
	CacheSizeBytes  int64
	PendingMessages int
}

// Snapshot returns the zone's current aggregated state.
func (z *Zone) Snapshot() State {
	pending := 0
	for _, b := range z.registry.All() {
		pending += b.Pending()
	}
	return State{
		Index:           z.Index,
		LiveFileNumber:  z.Writer.LiveFileNumber(),
		CacheSizeBytes:  z.Cache.TotalBytes(),
		PendingMessages: pending,
	}
}
