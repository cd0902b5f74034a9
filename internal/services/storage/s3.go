package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// s3MaxKeys is both the listing page size and the DeleteObjects batch limit.
const s3MaxKeys = 1000

// S3Client is the subset of the S3 API used by the backend.
type S3Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3 stores backups in an AWS S3 or S3-compatible bucket.
type S3 struct {
	client   S3Client
	uploader *manager.Uploader
	bucket   string
	logger   zerolog.Logger
}

// NewS3 creates an S3 backend from static credentials. A custom endpoint
// switches the client to path-style addressing.
func NewS3(ctx context.Context, logger zerolog.Logger, cfg models.AWSS3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	}

	region := cfg.Region
	if region == "" {
		// S3-compatible services ignore the region but the SDK requires one.
		region = "us-east-1"
	}
	opts = append(opts, config.WithRegion(region))

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WithClient(logger, client, cfg.Bucket), nil
}

// NewS3WithClient creates an S3 backend with a custom client (for testing).
func NewS3WithClient(logger zerolog.Logger, client S3Client, bucket string) *S3 {
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		logger:   logger,
	}
}

// Name returns models.StorageAWSS3.
func (s *S3) Name() models.StorageService {
	return models.StorageAWSS3
}

// Put uploads content, switching to multipart for large bodies.
func (s *S3) Put(ctx context.Context, content io.Reader, name string) error {
	s.logger.Debug().Str("bucket", s.bucket).Str("key", name).Msg("uploading object")

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   content,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", name, err)
	}

	return nil
}

// List pages through the bucket with ListObjectsV2.
func (s *S3) List(ctx context.Context) ([]models.BackupEntry, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(s3MaxKeys),
	})

	var entries []models.BackupEntry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}

		for _, obj := range page.Contents {
			entries = append(entries, models.BackupEntry{
				Name: aws.ToString(obj.Key),
				Date: aws.ToTime(obj.LastModified),
			})
		}
	}

	s.logger.Debug().Str("bucket", s.bucket).Int("count", len(entries)).Msg("listed objects")

	return entries, nil
}

// Delete removes names with DeleteObjects, one request per 1000 keys.
// Every chunk is attempted; request failures and per-key errors are aggregated.
func (s *S3) Delete(ctx context.Context, names []string) error {
	var result *multierror.Error

	for start := 0; start < len(names); start += s3MaxKeys {
		end := min(start+s3MaxKeys, len(names))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, name := range names[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(name)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to delete S3 objects: %w", err))
			continue
		}

		for _, e := range out.Errors {
			result = multierror.Append(result, fmt.Errorf("failed to delete %s: %s: %s",
				aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}

	return result.ErrorOrNil()
}
