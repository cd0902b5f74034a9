// Package storage provides the remote object storage backends backups are shipped to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// ErrObjectNotFound is returned by an ObjectStore when the named object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Service defines the interface every storage backend implements.
type Service interface {
	// Put uploads content under name, overwriting any existing object.
	Put(ctx context.Context, content io.Reader, name string) error
	// List returns every object in the bucket or container.
	List(ctx context.Context) ([]models.BackupEntry, error)
	// Delete removes the named objects. An empty batch is a no-op.
	Delete(ctx context.Context, names []string) error
	// Name returns the storage service identifier.
	Name() models.StorageService
}

// ObjectStore is the minimal surface of a provider SDK without a batch delete.
// It allows mocking the Azure and GCS clients in tests.
type ObjectStore interface {
	Upload(ctx context.Context, name string, content io.Reader) error
	// ListPage returns one page of objects starting at token and the token of
	// the next page, empty when there is none.
	ListPage(ctx context.Context, token string) ([]models.BackupEntry, string, error)
	Delete(ctx context.Context, name string) error
}

// NewFromConfig returns the storage backend selected by cfg.StorageService.
func NewFromConfig(ctx context.Context, logger zerolog.Logger, cfg models.BackupConfig) (Service, error) {
	switch cfg.StorageService {
	case models.StorageAWSS3:
		return NewS3(ctx, logger, cfg.AWSS3)
	case models.StorageAzureBlob:
		return NewAzureBlob(logger, cfg.Azure)
	case models.StorageGCS:
		return NewGCS(ctx, logger, cfg.GCS)
	default:
		return nil, models.NewInvalidStorageError("storageService", cfg.StorageService)
	}
}

// listAll pages through store until it reports no further page.
func listAll(ctx context.Context, store ObjectStore) ([]models.BackupEntry, error) {
	var (
		entries []models.BackupEntry
		token   string
	)

	for {
		page, next, err := store.ListPage(ctx, token)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)

		if next == "" {
			return entries, nil
		}
		token = next
	}
}

// deleteEach issues one delete per name concurrently and waits for all of
// them. Objects that are already gone count as deleted.
func deleteEach(ctx context.Context, logger zerolog.Logger, store ObjectStore, names []string) error {
	var g multierror.Group

	for _, name := range names {
		g.Go(func() error {
			err := store.Delete(ctx, name)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, ErrObjectNotFound):
				logger.Debug().Str("name", name).Msg("object already deleted")
				return nil
			default:
				return fmt.Errorf("failed to delete %s: %w", name, err)
			}
		})
	}

	return g.Wait().ErrorOrNil()
}
