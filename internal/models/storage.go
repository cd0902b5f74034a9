package models

import "time"

// StorageService identifies a supported remote storage provider.
type StorageService string

// Supported storage services.
const (
	StorageAWSS3     StorageService = "aws-s3"
	StorageAzureBlob StorageService = "azure-blob-storage"
	StorageGCS       StorageService = "gcs"
)

// StorageServices returns every supported storage service in a stable order.
func StorageServices() []StorageService {
	return []StorageService{StorageAWSS3, StorageAzureBlob, StorageGCS}
}

// Valid reports whether s is one of the supported storage services.
func (s StorageService) Valid() bool {
	for _, known := range StorageServices() {
		if s == known {
			return true
		}
	}
	return false
}

// AWSS3Config holds credentials for AWS S3 and S3-compatible services.
// At least one of Region and Endpoint must be set.
type AWSS3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
}

// AzureBlobConfig holds Azure Blob Storage credentials.
type AzureBlobConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
}

// GCSConfig holds Google Cloud Storage credentials.
type GCSConfig struct {
	BucketName  string
	KeyFilename string // service account JSON key
}

// BackupEntry is one remote backup artifact as returned by a storage listing.
type BackupEntry struct {
	Name string
	Date time.Time
}
