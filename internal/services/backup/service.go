// Package backup implements the backup and retention operations.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/archive"
	"github.com/fgeck/cms-backup/internal/services/dumper"
	"github.com/fgeck/cms-backup/internal/services/storage"
	"github.com/rs/zerolog"
)

// FileBackup describes a file or directory to archive and upload.
type FileBackup struct {
	FilePath       string
	BackupFilename string // uploaded as BackupFilename + ArchiveSuffix
}

// Service defines the interface for backup operations.
type Service interface {
	BackupFile(ctx context.Context, b FileBackup) error
	BackupDatabase(ctx context.Context, backupFilename string) error
	Cleanup(ctx context.Context) (*models.CleanupResult, error)
}

// DumperFactory builds the dumper for a connection.
type DumperFactory func(logger zerolog.Logger, settings models.DumpSettings, conn models.Connection) (dumper.Dumper, error)

// Impl implements the backup Service interface.
type Impl struct {
	cfg       models.BackupConfig
	storage   storage.Service
	archiver  archive.Service
	scratch   Scratch
	newDumper DumperFactory
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates a new backup service uploading to store.
func New(logger zerolog.Logger, cfg models.BackupConfig, store storage.Service, scratch Scratch) *Impl {
	return NewWithServices(logger, cfg, store, archive.New(logger), scratch, dumper.NewFromConfig, time.Now)
}

// NewWithServices creates a new backup service with custom collaborators (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfg models.BackupConfig,
	store storage.Service,
	archiver archive.Service,
	scratch Scratch,
	newDumper DumperFactory,
	now func() time.Time,
) *Impl {
	return &Impl{
		cfg:       cfg,
		storage:   store,
		archiver:  archiver,
		scratch:   scratch,
		newDumper: newDumper,
		now:       now,
		logger:    logger,
	}
}

// BackupFile archives b.FilePath into the scratch directory and uploads it.
func (s *Impl) BackupFile(ctx context.Context, b FileBackup) error {
	archivePath := s.scratch.NewPath()
	defer s.removeScratchFile(archivePath)

	if err := s.archiver.Archive(ctx, b.FilePath, archivePath); err != nil {
		return fmt.Errorf("failed to archive %s: %w", b.FilePath, err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	key := ObjectKey(b.BackupFilename)
	if err := s.storage.Put(ctx, f, key); err != nil {
		return err
	}

	s.logger.Debug().
		Str("source", b.FilePath).
		Str("key", key).
		Str("storage", string(s.storage.Name())).
		Msg("artifact uploaded")

	return nil
}

// BackupDatabase dumps the host database and uploads the dump as an archive.
func (s *Impl) BackupDatabase(ctx context.Context, backupFilename string) error {
	conn, err := ConnectionFromHost(s.cfg.Host.Database)
	if err != nil {
		return err
	}

	d, err := s.newDumper(s.logger, s.cfg.Dump, conn)
	if err != nil {
		return err
	}

	dumpPath := s.scratch.NewPath()
	defer s.removeScratchFile(dumpPath)

	if err := d.Dump(ctx, dumpPath); err != nil {
		return err
	}

	return s.BackupFile(ctx, FileBackup{FilePath: dumpPath, BackupFilename: backupFilename})
}

// Cleanup deletes every remote artifact at least as old as the retention
// window, in a single batch.
func (s *Impl) Cleanup(ctx context.Context) (*models.CleanupResult, error) {
	now := s.now()

	entries, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	threshold := s.cfg.TimeToKeepBackups.Seconds()
	expired := make([]string, 0, len(entries))
	for _, e := range entries {
		if DateDiffInSeconds(e.Date, now) >= threshold {
			expired = append(expired, e.Name)
		}
	}

	s.logger.Debug().
		Int("listed", len(entries)).
		Int("expired", len(expired)).
		Dur("retention", s.cfg.TimeToKeepBackups).
		Msg("retention sweep")

	if err := s.storage.Delete(ctx, expired); err != nil {
		return nil, err
	}

	return &models.CleanupResult{
		Listed:   len(entries),
		Deleted:  expired,
		Duration: s.now().Sub(now),
	}, nil
}

func (s *Impl) removeScratchFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove scratch file")
	}
}
