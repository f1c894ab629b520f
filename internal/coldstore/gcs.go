package coldstore

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
)

// GCSStore archives to a Google Cloud Storage bucket under an optional
// object-name prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Store = (*GCSStore)(nil)

// NewGCSStore builds a GCSStore using the default Google application
// credentials.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("coldstore: gcs bucket must not be empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("coldstore: gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads data as an object named prefix/key.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	obj := s.client.Bucket(s.bucket).Object(path.Join(s.prefix, key))
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("coldstore: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("coldstore: gcs close %s: %w", key, err)
	}
	return nil
}
