// Package config defines the engine's configuration options and the
// pluggable Store interface used to persist them.
package config

import "context"

// Options recognizes every option of §6.4, plus the cold-archival and
// zone-override extensions.
type Options struct {
	BytesBeforeHashing  int     `json:"bytes_before_hashing"`
	CacheSizeLimitBytes int64   `json:"cache_size_limit_bytes"`
	InitLoadCaches      bool    `json:"init_load_caches"`
	DataFileMaxBytes    int64   `json:"data_file_max_bytes"`
	RestChunkThreshold  int     `json:"rest_chunk_threshold"`
	RestChunkBytes      int     `json:"rest_chunk_bytes"`
	NumCbotsPerZone     int     `json:"num_cbots_per_zone"`
	NumFbotsPerZone     int     `json:"num_fbots_per_zone"`
	NumIgbotsPerZone    int     `json:"num_igbots_per_zone"`
	NumRbotsPerZone     int     `json:"num_rbots_per_zone"`
	NumWbotsPerZone     int     `json:"num_wbots_per_zone"`
	NumZones            int     `json:"num_zones"`
	ZoneStateUpdateSecs int     `json:"zone_state_update_secs"`
	GCEnabled           bool    `json:"gc_enabled"`
	GCStaleThreshold    float64 `json:"gc_stale_threshold"`

	ZoneOverrides []ZoneOverride `json:"zone_overrides,omitempty"`
	ColdStore     ColdStoreConfig `json:"cold_store"`

	Network NetworkConfig `json:"network"`
}

// NetworkConfig configures the optional HTTP surface (package httpapi).
type NetworkConfig struct {
	ListenAddr         string `json:"listen_addr"`
	NoAuth             bool   `json:"no_auth"`
	JWTSecret          string `json:"jwt_secret"`
	TokenDurationHours int    `json:"token_duration_hours"`

	// TLSCertFile/TLSKeyFile, when both set, enable HTTPS via package
	// cert's file-watching certificate manager. Left empty, the server
	// listens in plaintext.
	TLSCertFile string `json:"tls_cert_file,omitempty"`
	TLSKeyFile  string `json:"tls_key_file,omitempty"`
}

// ZoneOverride customizes a single zone's directory and size limit.
type ZoneOverride struct {
	ZoneIndex        int    `json:"zone_index"`
	Root             string `json:"root,omitempty"`
	DataFileMaxBytes int64  `json:"data_file_max_bytes,omitempty"`
}

// ColdStoreConfig selects and configures the optional cold archival tier.
type ColdStoreConfig struct {
	Kind      string `json:"kind"` // "none", "s3", "azblob", "gcs"
	Bucket    string `json:"bucket,omitempty"`
	Container string `json:"container,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
}

// Default returns a conservative set of defaults matching this
// repository's zero-config behavior.
func Default() Options {
	return Options{
		CacheSizeLimitBytes: 64 << 20,
		DataFileMaxBytes:    64 << 20,
		RestChunkThreshold:  1 << 20,
		RestChunkBytes:      1 << 16,
		NumCbotsPerZone:     16,
		NumFbotsPerZone:     1,
		NumIgbotsPerZone:    1,
		NumRbotsPerZone:     4,
		NumWbotsPerZone:     1,
		NumZones:            1,
		ZoneStateUpdateSecs: 30,
		GCEnabled:           true,
		GCStaleThreshold:    0.5,
		ColdStore:           ColdStoreConfig{Kind: "none"},
		Network:             NetworkConfig{ListenAddr: ":4564", TokenDurationHours: 24},
	}
}

// Store persists and retrieves Options. Implementations live in
// subpackages file, memory, and sqlite.
//
// Store is control-plane state, not data-plane state: it is read once at
// startup to build a DB and is not consulted on the insert/get/delete hot
// path.
type Store interface {
	// Load reads the persisted options. Returns nil if none have ever
	// been saved.
	Load(ctx context.Context) (*Options, error)

	// Save persists opts, replacing whatever was saved before.
	Save(ctx context.Context, opts *Options) error
}
