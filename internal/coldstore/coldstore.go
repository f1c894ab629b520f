// Package coldstore implements gcbot.ColdStore against cloud object
// storage, so that archive files garbage collection would otherwise
// delete can instead be durably retained off-node.
package coldstore

import (
	"context"
	"fmt"

	"ozonedb/internal/config"
)

// Store uploads a key/payload pair to an object storage backend.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
}

// New builds the Store named by cfg.Kind, or nil (and no error) for
// "none"/empty. ctx bounds any client construction the backend needs
// to do (e.g. credential discovery).
func New(ctx context.Context, cfg config.ColdStoreConfig) (Store, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "s3":
		return NewS3Store(ctx, cfg.Bucket, cfg.Prefix)
	case "azblob":
		return NewAzblobStore(ctx, cfg.Container, cfg.Prefix)
	case "gcs":
		return NewGCSStore(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("coldstore: unknown kind %q", cfg.Kind)
	}
}
