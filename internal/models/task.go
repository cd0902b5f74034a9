package models

import "time"

// Task names as registered with the scheduler.
const (
	TaskBackup  = "backup"
	TaskCleanup = "cleanup"
)

// BackupResult holds the result of the backup task.
type BackupResult struct {
	Artifacts []string // uploaded object names
	Duration  time.Duration
}

// CleanupResult holds the result of a retention sweep.
type CleanupResult struct {
	Listed   int
	Deleted  []string
	Duration time.Duration
}
