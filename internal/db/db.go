// Package db implements the database API / supervisor: the single
// external surface of the engine, responsible for fingerprinting keys,
// chunking oversized values, routing requests to the right zone's
// writer/reader, and correlating replies back to the caller.
package db

import (
	"context"
	"log/slog"
	"time"

	"ozonedb/internal/cache"
	"ozonedb/internal/chunker"
	"ozonedb/internal/collab"
	"ozonedb/internal/errs"
	"ozonedb/internal/fingerprint"
	"ozonedb/internal/gcbot"
	"ozonedb/internal/logging"
	"ozonedb/internal/model"
	"ozonedb/internal/zone"
)

// Config is the database-wide configuration, corresponding to §6.4's
// recognized options.
type Config struct {
	NumZones            int
	ZoneRoots           []string // len must equal NumZones; zone_overrides resolved by the caller
	DataFileMaxBytes    int64
	CacheSizeLimitBytes int64
	BytesBeforeHashing  int
	NumCacheShardsPerZone int
	NumReaderBotsPerZone  int
	NumGCBotsPerZone      int
	GCStaleThreshold      float64
	GCEnabled             bool
	InitLoadCaches        bool
	ZoneStateUpdateEvery  time.Duration
	HandleCacheTTL        time.Duration

	ChunkThreshold int
	ChunkSize      int
	ChunkPad       bool

	Checksummer collab.Checksummer
	Encrypter   collab.Encrypter
	EncryptKey  []byte
	KeyHasher   collab.KeyHasher
	TermCodec   collab.TermCodec

	ColdStore gcbot.ColdStore
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Checksummer == nil {
		c.Checksummer = collab.XxhashChecksummer{}
	}
	if c.Encrypter == nil {
		c.Encrypter = collab.IdentityEncrypter{}
	}
	if c.KeyHasher == nil {
		c.KeyHasher = collab.Blake2bKeyHasher{}
	}
	if c.TermCodec == nil {
		c.TermCodec = collab.MsgpackTermCodec{}
	}
	if c.NumZones <= 0 {
		c.NumZones = 1
	}
	if c.NumCacheShardsPerZone <= 0 {
		c.NumCacheShardsPerZone = 16
	}
	if c.NumReaderBotsPerZone <= 0 {
		c.NumReaderBotsPerZone = 4
	}
	if c.NumGCBotsPerZone <= 0 {
		c.NumGCBotsPerZone = 2
	}
	if c.GCStaleThreshold <= 0 {
		c.GCStaleThreshold = 0.5
	}
	if c.HandleCacheTTL <= 0 {
		c.HandleCacheTTL = 5 * time.Minute
	}
	if c.ZoneStateUpdateEvery <= 0 {
		c.ZoneStateUpdateEvery = 30 * time.Second
	}
	return c
}

// DB is the database API / supervisor. It starts one zone supervisor per
// zone. Each zone starts its file-state and cache-shard workers, then runs
// its recovery replay (when InitLoadCaches is set), then opens the
// writer's live file pair, and only then starts the writer, reader and GC
// workers, all at once.
type DB struct {
	cfg    Config
	zones  []*zone.Zone
	logger *slog.Logger
}

// Open starts every zone and returns a ready DB.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	cfg = cfg.withDefaults()
	if len(cfg.ZoneRoots) != cfg.NumZones {
		return nil, errs.New(errs.KindConfig, "db: len(ZoneRoots) must equal NumZones")
	}
	logger := logging.Default(cfg.Logger).With("component", "db")

	zones := make([]*zone.Zone, cfg.NumZones)
	for i := 0; i < cfg.NumZones; i++ {
		zcfg := zone.Config{
			Root:                 cfg.ZoneRoots[i],
			DataFileMaxBytes:     cfg.DataFileMaxBytes,
			CacheSizeLimitBytes:  cfg.CacheSizeLimitBytes,
			BytesBeforeHashing:   cfg.BytesBeforeHashing,
			NumCacheShards:       cfg.NumCacheShardsPerZone,
			NumReaderBots:        cfg.NumReaderBotsPerZone,
			NumGCBots:            cfg.NumGCBotsPerZone,
			GCStaleThreshold:     cfg.GCStaleThreshold,
			GCEnabled:            cfg.GCEnabled,
			InitLoadCaches:       cfg.InitLoadCaches,
			ZoneStateUpdateEvery: cfg.ZoneStateUpdateEvery,
			HandleCacheTTL:       cfg.HandleCacheTTL,
		}
		z, err := zone.New(ctx, i, zcfg, cfg.Checksummer, cfg.ColdStore, logger)
		if err != nil {
			return nil, err
		}
		zones[i] = z
	}

	return &DB{cfg: cfg, zones: zones, logger: logger}, nil
}

// Close stops every zone.
func (d *DB) Close() {
	for _, z := range d.zones {
		z.Stop()
	}
}

func (d *DB) zoneFor(fp []byte) *zone.Zone {
	return d.zones[fingerprint.ZoneIndex(fp, len(d.zones))]
}

func (d *DB) chunkerConfig() chunker.Config {
	return chunker.Config{Threshold: d.cfg.ChunkThreshold, ChunkSize: d.cfg.ChunkSize, Pad: d.cfg.ChunkPad}
}

func wrapValue(kind model.ValueKind, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(kind))
	out = append(out, payload...)
	return out
}

func unwrapValue(b []byte) (model.ValueKind, []byte) {
	if len(b) == 0 {
		return model.ValueKindPlain, b
	}
	return model.ValueKind(b[0]), b[1:]
}

func (d *DB) encrypt(payload []byte) ([]byte, error) {
	return d.cfg.Encrypter.Encrypt(payload, d.cfg.EncryptKey)
}

func (d *DB) decrypt(payload []byte) ([]byte, error) {
	return d.cfg.Encrypter.Decrypt(payload, d.cfg.EncryptKey)
}

// Insert fingerprints key, chunks value if it exceeds the configured
// threshold, writes each (sub-)record through the appropriate zone's
// writer, and returns the number of chunks written (1 for an unchunked
// value).
func (d *DB) Insert(ctx context.Context, key, value, userID []byte) (int, error) {
	fp := fingerprint.Derive(key, d.cfg.BytesBeforeHashing, d.cfg.KeyHasher)
	meta := model.NowMetadata(time.Now(), userID)

	ck := d.chunkerConfig()
	if !ck.NeedsChunking(len(value)) {
		if err := d.writeOne(ctx, fp, model.ValueKindPlain, value, meta); err != nil {
			return 0, err
		}
		return 1, nil
	}

	plan, err := ck.Split(value)
	if err != nil {
		return 0, err
	}
	headBytes, err := d.cfg.TermCodec.Encode(plan.Head)
	if err != nil {
		return 0, errs.Wrap(errs.KindConfig, "db: encode chunk head", err)
	}
	if err := d.writeOne(ctx, fp, model.ValueKindHead, headBytes, meta); err != nil {
		return 0, err
	}

	count := 0
	for _, part := range plan.Chunks {
		partKeyBytes, err := d.cfg.TermCodec.Encode(part.Key)
		if err != nil {
			return count, errs.Wrap(errs.KindConfig, "db: encode chunk key", err)
		}
		partFP := fingerprint.Derive(partKeyBytes, d.cfg.BytesBeforeHashing, d.cfg.KeyHasher)
		if err := d.writeOne(ctx, partFP, model.ValueKindChunk, part.Value, meta); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (d *DB) writeOne(ctx context.Context, fp []byte, kind model.ValueKind, payload []byte, meta model.Metadata) error {
	encrypted, err := d.encrypt(payload)
	if err != nil {
		return errs.Wrap(errs.KindIO, "db: encrypt value", err)
	}
	wrapped := wrapValue(kind, encrypted)

	z := d.zoneFor(fp)
	shard := z.Cache.ShardFor(fp)
	var oldEntry *cache.Entry
	if old, ok := shard.LookupForRead(fp); ok {
		oldEntry = &old
	}

	_, err = writeWithDeadline(ctx, z, fp, wrapped, meta, oldEntry)
	return err
}

func writeWithDeadline(ctx context.Context, z *zone.Zone, fp, wrapped []byte, meta model.Metadata, oldEntry *cache.Entry) (model.FileLocation, error) {
	type result struct {
		loc model.FileLocation
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := z.Writer.Write(fp, wrapped, meta, oldEntry, true)
		ch <- result{loc, err}
	}()
	select {
	case r := <-ch:
		return r.loc, r.err
	case <-ctx.Done():
		return model.FileLocation{}, errs.Wrap(errs.KindTimeout, "db: insert exceeded wait budget", ctx.Err())
	}
}

// Get fingerprints key, consults the cache, and falls back to a reader
// worker on a cache miss without a value. Chunked values are
// transparently reassembled.
func (d *DB) Get(ctx context.Context, key []byte) ([]byte, model.Metadata, error) {
	fp := fingerprint.Derive(key, d.cfg.BytesBeforeHashing, d.cfg.KeyHasher)
	return d.getByFingerprint(ctx, fp)
}

func (d *DB) getByFingerprint(ctx context.Context, fp []byte) ([]byte, model.Metadata, error) {
	z := d.zoneFor(fp)
	entry, ok := z.Cache.ShardFor(fp).LookupForRead(fp)
	if !ok {
		return nil, model.Metadata{}, errs.New(errs.KindNotFound, "db: key not present")
	}

	raw := entry.Value
	meta := entry.Meta
	if raw == nil {
		value, m, err := readWithDeadline(ctx, z, entry.FLoc)
		if err != nil {
			return nil, model.Metadata{}, err
		}
		raw, meta = value, m
	}

	kind, wrappedPayload := unwrapValue(raw)
	if kind == model.ValueKindTombstone {
		return nil, model.Metadata{}, errs.New(errs.KindNotFound, "db: key deleted")
	}
	payload, err := d.decrypt(wrappedPayload)
	if err != nil {
		return nil, model.Metadata{}, errs.Wrap(errs.KindCorruption, "db: decrypt value", err)
	}

	if kind != model.ValueKindHead {
		return payload, meta, nil
	}

	var head model.ChunkKey
	if err := d.cfg.TermCodec.Decode(payload, &head); err != nil {
		return nil, model.Metadata{}, errs.Wrap(errs.KindCorruption, "db: decode chunk head", err)
	}
	chunkValues := make([][]byte, 0, head.NumChunks)
	for i := uint64(1); i <= head.NumChunks; i++ {
		ck := model.ChunkKey{SetID: head.SetID, Index: i, TotalLen: head.TotalLen, NumChunks: head.NumChunks, ChunkSize: head.ChunkSize}
		ckBytes, err := d.cfg.TermCodec.Encode(ck)
		if err != nil {
			return nil, model.Metadata{}, errs.Wrap(errs.KindConfig, "db: encode chunk key for read", err)
		}
		chunkFP := fingerprint.Derive(ckBytes, d.cfg.BytesBeforeHashing, d.cfg.KeyHasher)
		chunkPayload, _, err := d.getRawByFingerprint(ctx, chunkFP)
		if err != nil {
			return nil, model.Metadata{}, err
		}
		chunkValues = append(chunkValues, chunkPayload)
	}
	full, err := chunker.Reassemble(head, chunkValues)
	if err != nil {
		return nil, model.Metadata{}, err
	}
	return full, meta, nil
}

// getRawByFingerprint fetches and decrypts a non-head record's payload,
// used internally when reassembling chunk parts.
func (d *DB) getRawByFingerprint(ctx context.Context, fp []byte) ([]byte, model.Metadata, error) {
	z := d.zoneFor(fp)
	entry, ok := z.Cache.ShardFor(fp).LookupForRead(fp)
	if !ok {
		return nil, model.Metadata{}, errs.New(errs.KindNotFound, "db: chunk part not present")
	}
	raw := entry.Value
	meta := entry.Meta
	if raw == nil {
		value, m, err := readWithDeadline(ctx, z, entry.FLoc)
		if err != nil {
			return nil, model.Metadata{}, err
		}
		raw, meta = value, m
	}
	_, wrapped := unwrapValue(raw)
	payload, err := d.decrypt(wrapped)
	if err != nil {
		return nil, model.Metadata{}, errs.Wrap(errs.KindCorruption, "db: decrypt chunk part", err)
	}
	return payload, meta, nil
}

func readWithDeadline(ctx context.Context, z *zone.Zone, loc model.FileLocation) ([]byte, model.Metadata, error) {
	type result struct {
		value []byte
		meta  model.Metadata
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, m, err := z.Reader.Read(loc)
		ch <- result{v, m, err}
	}()
	select {
	case r := <-ch:
		return r.value, r.meta, r.err
	case <-ctx.Done():
		return nil, model.Metadata{}, errs.Wrap(errs.KindTimeout, "db: get exceeded wait budget", ctx.Err())
	}
}

// Delete writes a tombstone record for key and removes it from the
// cache, returning true if the key had been present.
func (d *DB) Delete(ctx context.Context, key, userID []byte) (bool, error) {
	fp := fingerprint.Derive(key, d.cfg.BytesBeforeHashing, d.cfg.KeyHasher)
	z := d.zoneFor(fp)
	shard := z.Cache.ShardFor(fp)

	old, existed := shard.Delete(fp)
	if !existed {
		return false, nil
	}

	meta := model.NowMetadata(time.Now(), userID)
	oldEntryCopy := old
	if err := d.writeOneTombstone(ctx, fp, meta, &oldEntryCopy); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) writeOneTombstone(ctx context.Context, fp []byte, meta model.Metadata, oldEntry *cache.Entry) error {
	z := d.zoneFor(fp)
	wrapped := wrapValue(model.ValueKindTombstone, nil)

	type result struct {
		err error
	}
	ch := make(chan result, 1)
	go func() {
		_, err := z.Writer.WriteTombstone(fp, wrapped, meta, oldEntry)
		ch <- result{err}
	}()
	select {
	case r := <-ch:
		return r.err
	case <-ctx.Done():
		return errs.Wrap(errs.KindTimeout, "db: delete exceeded wait budget", ctx.Err())
	}
}

// ZoneStates returns the aggregated per-zone state for all zones.
func (d *DB) ZoneStates() []zone.State {
	out := make([]zone.State, len(d.zones))
	for i, z := range d.zones {
		out[i] = z.Snapshot()
	}
	return out
}
