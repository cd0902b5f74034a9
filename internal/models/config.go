// Package models contains the data structures used throughout cms-backup.
package models

import "time"

// BackupConfig holds the complete configuration for the backup and cleanup tasks.
type BackupConfig struct {
	DatabaseDriver DatabaseDriver
	StorageService StorageService

	Dump  DumpSettings
	AWSS3 AWSS3Config
	Azure AzureBlobConfig
	GCS   GCSConfig

	DisableUploadsBackup  bool
	DisableDatabaseBackup bool
	AllowCleanup          bool
	TimeToKeepBackups     time.Duration // required when AllowCleanup is set

	CronSchedule        string
	CleanupCronSchedule string // falls back to CronSchedule

	// Optional text/template filenames, rendered with FilenameData.
	CustomUploadsBackupFilename  string
	CustomDatabaseBackupFilename string

	UploadsDir string
	ScratchDir string

	Host     HostConfig
	Telegram *TelegramConfig // nil if not configured
}

// DumpSettings holds the dump tool executables and extra options per driver.
type DumpSettings struct {
	MysqldumpExecutable string
	MysqldumpOptions    []string
	PgDumpExecutable    string
	PgDumpOptions       []string
	Sqlite3Executable   string
}

// HostConfig describes what the hosting application exposes to the backup tasks.
type HostConfig struct {
	Name     string
	Database HostDatabaseConfig
}

// FilenameData is the data passed to custom filename templates.
type FilenameData struct {
	Prefix string
	Time   time.Time
	Host   string
}

// EffectiveCleanupSchedule returns the cron expression used for the cleanup task.
func (c BackupConfig) EffectiveCleanupSchedule() string {
	if c.CleanupCronSchedule != "" {
		return c.CleanupCronSchedule
	}
	return c.CronSchedule
}
