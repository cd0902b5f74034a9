package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsPageSize = 1000

// GCS stores backups in a Google Cloud Storage bucket.
type GCS struct {
	store  ObjectStore
	bucket string
	logger zerolog.Logger
}

// NewGCS creates a GCS backend authenticated with a service account key file.
func NewGCS(ctx context.Context, logger zerolog.Logger, cfg models.GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.KeyFilename != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.KeyFilename))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return NewGCSWithStore(logger, newGCSStore(client.Bucket(cfg.BucketName)), cfg.BucketName), nil
}

// NewGCSWithStore creates a GCS backend with a custom store (for testing).
func NewGCSWithStore(logger zerolog.Logger, store ObjectStore, bucket string) *GCS {
	return &GCS{
		store:  store,
		bucket: bucket,
		logger: logger,
	}
}

// Name returns models.StorageGCS.
func (g *GCS) Name() models.StorageService {
	return models.StorageGCS
}

// Put streams content into an object writer.
func (g *GCS) Put(ctx context.Context, content io.Reader, name string) error {
	g.logger.Debug().Str("bucket", g.bucket).Str("object", name).Msg("uploading object")

	if err := g.store.Upload(ctx, name, content); err != nil {
		return fmt.Errorf("failed to upload %s to GCS: %w", name, err)
	}
	return nil
}

// List pages through the bucket.
func (g *GCS) List(ctx context.Context) ([]models.BackupEntry, error) {
	entries, err := listAll(ctx, g.store)
	if err != nil {
		return nil, fmt.Errorf("failed to list GCS objects: %w", err)
	}

	g.logger.Debug().Str("bucket", g.bucket).Int("count", len(entries)).Msg("listed objects")

	return entries, nil
}

// Delete removes every named object concurrently.
func (g *GCS) Delete(ctx context.Context, names []string) error {
	return deleteEach(ctx, g.logger, g.store, names)
}

// gcsStore adapts a bucket handle to ObjectStore.
type gcsStore struct {
	bucket    *gcs.BucketHandle
	newWriter func(ctx context.Context, name string) io.WriteCloser
}

func newGCSStore(bucket *gcs.BucketHandle) *gcsStore {
	return &gcsStore{
		bucket: bucket,
		newWriter: func(ctx context.Context, name string) io.WriteCloser {
			return bucket.Object(name).NewWriter(ctx)
		},
	}
}

// Upload streams content into a new object. Close commits whatever was
// written, so a failed copy aborts the writer through its context instead.
func (s *gcsStore) Upload(ctx context.Context, name string, content io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.newWriter(ctx, name)
	if _, err := io.Copy(w, content); err != nil {
		cancel()
		return err
	}
	return w.Close()
}

func (s *gcsStore) ListPage(ctx context.Context, token string) ([]models.BackupEntry, string, error) {
	var attrs []*gcs.ObjectAttrs

	pager := iterator.NewPager(s.bucket.Objects(ctx, nil), gcsPageSize, token)
	next, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, "", err
	}

	entries := make([]models.BackupEntry, 0, len(attrs))
	for _, a := range attrs {
		entries = append(entries, models.BackupEntry{Name: a.Name, Date: a.Updated})
	}

	return entries, next, nil
}

func (s *gcsStore) Delete(ctx context.Context, name string) error {
	err := s.bucket.Object(name).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}
