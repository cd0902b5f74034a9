// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/backup"
	"github.com/fgeck/cms-backup/internal/services/scheduler"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.BackupConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.BackupConfig, error) {
	cfg := &models.BackupConfig{
		StorageService: models.StorageService(p.v.GetString("storageService")),

		Dump: models.DumpSettings{
			MysqldumpExecutable: p.v.GetString("mysqldumpExecutable"),
			MysqldumpOptions:    p.v.GetStringSlice("mysqldumpOptions"),
			PgDumpExecutable:    p.v.GetString("pgDumpExecutable"),
			PgDumpOptions:       p.v.GetStringSlice("pgDumpOptions"),
			Sqlite3Executable:   p.v.GetString("sqlite3Executable"),
		},

		AWSS3: models.AWSS3Config{
			AccessKeyID:     p.expandEnv(p.v.GetString("awsAccessKeyId")),
			SecretAccessKey: p.expandEnv(p.v.GetString("awsSecretAccessKey")),
			Region:          p.v.GetString("awsRegion"),
			Endpoint:        p.v.GetString("awsS3Endpoint"),
			Bucket:          p.v.GetString("awsS3Bucket"),
		},
		Azure: models.AzureBlobConfig{
			AccountName:   p.v.GetString("azureStorageAccountName"),
			AccountKey:    p.expandEnv(p.v.GetString("azureStorageAccountKey")),
			ContainerName: p.v.GetString("azureStorageContainerName"),
		},
		GCS: models.GCSConfig{
			BucketName:  p.v.GetString("gcsBucketName"),
			KeyFilename: p.expandEnv(p.v.GetString("gcsKeyFilename")),
		},

		DisableUploadsBackup:  p.v.GetBool("disableUploadsBackup"),
		DisableDatabaseBackup: p.v.GetBool("disableDatabaseBackup"),
		AllowCleanup:          p.v.GetBool("allowCleanup") || p.v.GetBool("cleanup"),

		CronSchedule:        p.v.GetString("cronSchedule"),
		CleanupCronSchedule: p.v.GetString("cleanupCronSchedule"),

		CustomUploadsBackupFilename:  p.v.GetString("customUploadsBackupFilename"),
		CustomDatabaseBackupFilename: p.v.GetString("customDatabaseBackupFilename"),

		UploadsDir: p.expandEnv(p.v.GetString("uploadsDir")),
		ScratchDir: p.expandEnv(p.v.GetString("scratchDir")),
	}

	if cfg.AllowCleanup {
		if !p.v.IsSet("timeToKeepBackupsInSeconds") {
			return nil, fmt.Errorf("timeToKeepBackupsInSeconds is required when cleanup is allowed")
		}
		seconds, err := p.seconds("timeToKeepBackupsInSeconds")
		if err != nil {
			return nil, err
		}
		cfg.TimeToKeepBackups = time.Duration(seconds) * time.Second
	}

	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "cms-backup")
	}

	// Parse the host description.
	cfg.Host = models.HostConfig{
		Name: p.v.GetString("host.name"),
		Database: models.HostDatabaseConfig{
			Client: models.DatabaseDriver(p.v.GetString("host.database.client")),
			Connection: models.HostDatabaseConnection{
				User:             p.expandEnv(p.v.GetString("host.database.connection.user")),
				Password:         p.expandEnv(p.v.GetString("host.database.connection.password")),
				Host:             p.v.GetString("host.database.connection.host"),
				Port:             p.v.GetString("host.database.connection.port"),
				Database:         p.v.GetString("host.database.connection.database"),
				ConnectionString: p.expandEnv(p.v.GetString("host.database.connection.connectionString")),
				Filename:         p.expandEnv(p.v.GetString("host.database.connection.filename")),
			},
		},
	}

	if cfg.Host.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			cfg.Host.Name = "unknown"
		} else {
			cfg.Host.Name = hostname
		}
	}

	// databaseDriver and host.database.client default to each other, then to $DATABASE_CLIENT.
	cfg.DatabaseDriver = models.DatabaseDriver(p.v.GetString("databaseDriver"))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = cfg.Host.Database.Client
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = models.DatabaseDriver(os.Getenv("DATABASE_CLIENT"))
	}
	if cfg.Host.Database.Client == "" {
		cfg.Host.Database.Client = cfg.DatabaseDriver
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// seconds reads key as a whole number of seconds. Unlike GetInt64 it fails
// on values that are not numbers instead of returning 0.
func (p *Parser) seconds(key string) (int64, error) {
	raw := p.v.Get(key)
	switch raw.(type) {
	case nil, bool:
		return 0, fmt.Errorf("%s must be a number of seconds, got %v", key, raw)
	}

	n, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number of seconds, got %q", key, fmt.Sprint(raw))
	}
	return n, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration. Credentials are
// only checked for the selected storage service and executables only for the
// selected driver.
//
//nolint:gocognit,gocyclo // one check per configuration rule
func Validate(cfg *models.BackupConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if !cfg.StorageService.Valid() {
		return models.NewInvalidStorageError("storageService", cfg.StorageService)
	}

	switch cfg.StorageService {
	case models.StorageAWSS3:
		if cfg.AWSS3.AccessKeyID == "" {
			return fmt.Errorf("awsAccessKeyId is required for %s", cfg.StorageService)
		}
		if cfg.AWSS3.SecretAccessKey == "" {
			return fmt.Errorf("awsSecretAccessKey is required for %s", cfg.StorageService)
		}
		if cfg.AWSS3.Region == "" && cfg.AWSS3.Endpoint == "" {
			return fmt.Errorf("awsRegion or awsS3Endpoint is required for %s", cfg.StorageService)
		}
		if cfg.AWSS3.Bucket == "" {
			return fmt.Errorf("awsS3Bucket is required for %s", cfg.StorageService)
		}
	case models.StorageAzureBlob:
		if cfg.Azure.AccountName == "" {
			return fmt.Errorf("azureStorageAccountName is required for %s", cfg.StorageService)
		}
		if cfg.Azure.AccountKey == "" {
			return fmt.Errorf("azureStorageAccountKey is required for %s", cfg.StorageService)
		}
		if cfg.Azure.ContainerName == "" {
			return fmt.Errorf("azureStorageContainerName is required for %s", cfg.StorageService)
		}
	case models.StorageGCS:
		if cfg.GCS.BucketName == "" {
			return fmt.Errorf("gcsBucketName is required for %s", cfg.StorageService)
		}
		if cfg.GCS.KeyFilename == "" {
			return fmt.Errorf("gcsKeyFilename is required for %s", cfg.StorageService)
		}
	}

	if !cfg.DisableDatabaseBackup {
		if err := validateDatabase(cfg); err != nil {
			return err
		}
	}

	if !cfg.DisableUploadsBackup && cfg.UploadsDir == "" {
		return fmt.Errorf("uploadsDir is required unless disableUploadsBackup is set")
	}

	if cfg.AllowCleanup && cfg.TimeToKeepBackups < 0 {
		return fmt.Errorf("timeToKeepBackupsInSeconds must not be negative")
	}

	if cfg.CronSchedule == "" {
		return fmt.Errorf("cronSchedule is required")
	}
	if err := scheduler.Validate(cfg.CronSchedule); err != nil {
		return fmt.Errorf("cronSchedule: %w", err)
	}
	if cfg.CleanupCronSchedule != "" {
		if err := scheduler.Validate(cfg.CleanupCronSchedule); err != nil {
			return fmt.Errorf("cleanupCronSchedule: %w", err)
		}
	}

	if cfg.CustomUploadsBackupFilename != "" {
		if err := backup.ValidateFilenameTemplate(cfg.CustomUploadsBackupFilename); err != nil {
			return fmt.Errorf("customUploadsBackupFilename: %w", err)
		}
	}
	if cfg.CustomDatabaseBackupFilename != "" {
		if err := backup.ValidateFilenameTemplate(cfg.CustomDatabaseBackupFilename); err != nil {
			return fmt.Errorf("customDatabaseBackupFilename: %w", err)
		}
	}

	if cfg.Telegram != nil {
		if cfg.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return nil
}

func validateDatabase(cfg *models.BackupConfig) error {
	if !cfg.DatabaseDriver.Valid() {
		return models.NewInvalidDriverError("databaseDriver", cfg.DatabaseDriver)
	}
	if cfg.Host.Database.Client != cfg.DatabaseDriver {
		return fmt.Errorf("databaseDriver %q does not match host.database.client %q",
			cfg.DatabaseDriver, cfg.Host.Database.Client)
	}

	switch cfg.DatabaseDriver {
	case models.DriverMySQL:
		if cfg.Dump.MysqldumpExecutable == "" {
			return fmt.Errorf("mysqldumpExecutable is required for %s", cfg.DatabaseDriver)
		}
	case models.DriverPostgres:
		if cfg.Dump.PgDumpExecutable == "" {
			return fmt.Errorf("pgDumpExecutable is required for %s", cfg.DatabaseDriver)
		}
	case models.DriverSQLite:
		if cfg.Dump.Sqlite3Executable == "" {
			return fmt.Errorf("sqlite3Executable is required for %s", cfg.DatabaseDriver)
		}
	}

	if _, err := backup.ConnectionFromHost(cfg.Host.Database); err != nil {
		return fmt.Errorf("host.database.connection: %w", err)
	}

	return nil
}
