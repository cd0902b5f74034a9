// Package runner executes the scheduled backup and cleanup tasks.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/backup"
	"github.com/fgeck/cms-backup/internal/services/telegram"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Service defines the interface for the task runner.
type Service interface {
	RunBackup(ctx context.Context, cfg models.BackupConfig) (*models.BackupResult, error)
	RunCleanup(ctx context.Context, cfg models.BackupConfig) (*models.CleanupResult, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	backupSvc   backup.Service
	telegramSvc telegram.Service
	storage     models.StorageService
	now         func() time.Time
	logger      zerolog.Logger
}

// New creates a new runner around backupSvc.
func New(logger zerolog.Logger, backupSvc backup.Service, storage models.StorageService) *Impl {
	return NewWithServices(logger, backupSvc, telegram.New(logger), storage, time.Now)
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	backupSvc backup.Service,
	telegramSvc telegram.Service,
	storage models.StorageService,
	now func() time.Time,
) *Impl {
	return &Impl{
		backupSvc:   backupSvc,
		telegramSvc: telegramSvc,
		storage:     storage,
		now:         now,
		logger:      logger,
	}
}

// RunBackup uploads the uploads directory and the database dump. A failing
// artifact does not stop the other one; all failures are returned together.
func (s *Impl) RunBackup(ctx context.Context, cfg models.BackupConfig) (*models.BackupResult, error) {
	startTime := s.now()
	result := &models.BackupResult{}

	var (
		failedSteps []string
		runErr      *multierror.Error
	)

	defer func() {
		if cfg.Telegram != nil {
			msg := s.message(cfg, models.TaskBackup, startTime, failedSteps, runErr.ErrorOrNil())
			msg.Artifacts = result.Artifacts
			s.notify(ctx, *cfg.Telegram, msg)
		}
	}()

	s.logger.Debug().
		Bool("uploads", !cfg.DisableUploadsBackup).
		Bool("database", !cfg.DisableDatabaseBackup).
		Msg("starting backup task")

	if !cfg.DisableUploadsBackup {
		name, err := backup.UploadsBackupFilename(cfg, startTime)
		if err == nil {
			err = s.backupSvc.BackupFile(ctx, backup.FileBackup{
				FilePath:       cfg.UploadsDir,
				BackupFilename: name,
			})
		}
		if err != nil {
			failedSteps = append(failedSteps, backup.PrefixUploads)
			runErr = multierror.Append(runErr, fmt.Errorf("uploads backup failed: %w", err))
		} else {
			s.logger.Info().Str("storage", string(s.storage)).Msgf("backup: %s", name)
			result.Artifacts = append(result.Artifacts, backup.ObjectKey(name))
		}
	}

	if !cfg.DisableDatabaseBackup {
		name, err := backup.DatabaseBackupFilename(cfg, startTime)
		if err == nil {
			err = s.backupSvc.BackupDatabase(ctx, name)
		}
		if err != nil {
			failedSteps = append(failedSteps, backup.PrefixDatabase)
			runErr = multierror.Append(runErr, fmt.Errorf("database backup failed: %w", err))
		} else {
			s.logger.Info().Str("storage", string(s.storage)).Msgf("backup: %s", name)
			result.Artifacts = append(result.Artifacts, backup.ObjectKey(name))
		}
	}

	result.Duration = s.now().Sub(startTime)

	if err := runErr.ErrorOrNil(); err != nil {
		s.logger.Error().Err(err).Strs("failed", failedSteps).Msg("backup task failed")
		return result, err
	}

	return result, nil
}

// RunCleanup runs the retention sweep. It does nothing unless cleanup is allowed.
func (s *Impl) RunCleanup(ctx context.Context, cfg models.BackupConfig) (*models.CleanupResult, error) {
	if !cfg.AllowCleanup {
		s.logger.Debug().Msg("cleanup disabled, skipping")
		return &models.CleanupResult{}, nil
	}

	startTime := s.now()

	res, err := s.backupSvc.Cleanup(ctx)
	if err != nil {
		err = fmt.Errorf("cleanup failed: %w", err)
		s.logger.Error().Err(err).Msg("cleanup task failed")
		if cfg.Telegram != nil {
			s.notify(ctx, *cfg.Telegram, s.message(cfg, models.TaskCleanup, startTime, []string{models.TaskCleanup}, err))
		}
		return nil, err
	}

	s.logger.Info().
		Str("storage", string(s.storage)).
		Int("listed", res.Listed).
		Int("deleted", len(res.Deleted)).
		Msg("cleanup")

	if cfg.Telegram != nil && len(res.Deleted) > 0 {
		msg := s.message(cfg, models.TaskCleanup, startTime, nil, nil)
		msg.BackupsListed = res.Listed
		msg.BackupsDeleted = len(res.Deleted)
		s.notify(ctx, *cfg.Telegram, msg)
	}

	return res, nil
}

func (s *Impl) message(
	cfg models.BackupConfig,
	task string,
	startTime time.Time,
	failedSteps []string,
	runErr error,
) models.TelegramMessage {
	msg := models.TelegramMessage{
		Success:   runErr == nil,
		Task:      task,
		Host:      cfg.Host.Name,
		Storage:   string(s.storage),
		StartTime: startTime,
		Duration:  s.now().Sub(startTime),
	}

	if runErr != nil {
		msg.FailedStep = strings.Join(failedSteps, ", ")
		msg.ErrorMessage = runErr.Error()
	}

	return msg
}

func (s *Impl) notify(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) {
	result, err := s.telegramSvc.SendNotification(ctx, cfg, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Debug().Str("task", msg.Task).Msg("Telegram notification sent")
}
