package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
)

// AzureBlob stores backups in an Azure Blob Storage container.
type AzureBlob struct {
	store     ObjectStore
	container string
	logger    zerolog.Logger
}

// NewAzureBlob creates an Azure backend authenticated with the account shared key.
func NewAzureBlob(logger zerolog.Logger, cfg models.AzureBlobConfig) (*AzureBlob, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid Azure credentials: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return NewAzureBlobWithStore(logger, &azureStore{client: client, container: cfg.ContainerName}, cfg.ContainerName), nil
}

// NewAzureBlobWithStore creates an Azure backend with a custom store (for testing).
func NewAzureBlobWithStore(logger zerolog.Logger, store ObjectStore, container string) *AzureBlob {
	return &AzureBlob{
		store:     store,
		container: container,
		logger:    logger,
	}
}

// Name returns models.StorageAzureBlob.
func (a *AzureBlob) Name() models.StorageService {
	return models.StorageAzureBlob
}

// Put streams content into a block blob.
func (a *AzureBlob) Put(ctx context.Context, content io.Reader, name string) error {
	a.logger.Debug().Str("container", a.container).Str("blob", name).Msg("uploading blob")

	if err := a.store.Upload(ctx, name, content); err != nil {
		return fmt.Errorf("failed to upload %s to Azure: %w", name, err)
	}
	return nil
}

// List pages through the container.
func (a *AzureBlob) List(ctx context.Context) ([]models.BackupEntry, error) {
	entries, err := listAll(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("failed to list Azure blobs: %w", err)
	}

	a.logger.Debug().Str("container", a.container).Int("count", len(entries)).Msg("listed blobs")

	return entries, nil
}

// Delete removes every named blob concurrently.
func (a *AzureBlob) Delete(ctx context.Context, names []string) error {
	return deleteEach(ctx, a.logger, a.store, names)
}

// azureStore adapts the azblob client to ObjectStore.
type azureStore struct {
	client    *azblob.Client
	container string
}

func (s *azureStore) Upload(ctx context.Context, name string, content io.Reader) error {
	_, err := s.client.UploadStream(ctx, s.container, name, content, nil)
	return err
}

func (s *azureStore) ListPage(ctx context.Context, token string) ([]models.BackupEntry, string, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if token != "" {
		opts.Marker = &token
	}

	resp, err := s.client.NewListBlobsFlatPager(s.container, opts).NextPage(ctx)
	if err != nil {
		return nil, "", err
	}

	var entries []models.BackupEntry
	if resp.Segment != nil {
		for _, item := range resp.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			entry := models.BackupEntry{Name: *item.Name}
			if item.Properties != nil && item.Properties.LastModified != nil {
				entry.Date = *item.Properties.LastModified
			}
			entries = append(entries, entry)
		}
	}

	var next string
	if resp.NextMarker != nil {
		next = *resp.NextMarker
	}

	return entries, next, nil
}

func (s *azureStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrObjectNotFound
	}
	return err
}
