package coldstore

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzblobStore archives to an Azure Blob Storage container under an
// optional blob-name prefix.
type AzblobStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

var _ Store = (*AzblobStore)(nil)

// NewAzblobStore builds an AzblobStore from the OZONEDB_AZURE_STORAGE_URL
// and OZONEDB_AZURE_STORAGE_KEY environment variables.
func NewAzblobStore(ctx context.Context, container, prefix string) (*AzblobStore, error) {
	if container == "" {
		return nil, fmt.Errorf("coldstore: azblob container must not be empty")
	}
	serviceURL := os.Getenv("OZONEDB_AZURE_STORAGE_URL")
	accountName := os.Getenv("OZONEDB_AZURE_STORAGE_ACCOUNT")
	accountKey := os.Getenv("OZONEDB_AZURE_STORAGE_KEY")
	if serviceURL == "" || accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("coldstore: azblob requires OZONEDB_AZURE_STORAGE_URL, OZONEDB_AZURE_STORAGE_ACCOUNT, OZONEDB_AZURE_STORAGE_KEY")
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("coldstore: azblob credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("coldstore: azblob client: %w", err)
	}
	return &AzblobStore{client: client, container: container, prefix: prefix}, nil
}

// Put uploads data as a blob named prefix/key, overwriting any existing
// blob of the same name.
func (s *AzblobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, path.Join(s.prefix, key), data, nil)
	if err != nil {
		return fmt.Errorf("coldstore: azblob put %s: %w", key, err)
	}
	return nil
}
