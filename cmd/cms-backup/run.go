package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/backup"
	"github.com/fgeck/cms-backup/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single task and exit",
	Long:  `Run the backup or cleanup task once. Use with an external scheduler (cron, systemd timer, etc.).`,
}

var runBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the uploads directory and the database",
	Long: `Execute the backup task:
1. Archive the uploads directory and upload it (unless disableUploadsBackup)
2. Dump the database, archive the dump and upload it (unless disableDatabaseBackup)
3. Send Telegram notification (if configured)`,
	RunE: runTask(models.TaskBackup),
}

var runCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete remote backups older than the retention window",
	Long:  `Execute the cleanup task. Nothing is deleted unless allowCleanup is set.`,
	RunE:  runTask(models.TaskCleanup),
}

func init() {
	runCmd.AddCommand(runBackupCmd)
	runCmd.AddCommand(runCleanupCmd)
}

func runTask(task string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			if err == errConfigRequired {
				log.Error().Msg("config file is required")
				return cmd.Help()
			}
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		// A private directory keeps a concurrent daemon's scratch files intact.
		scratch := backup.NewScratch(filepath.Join(cfg.ScratchDir, fmt.Sprintf("run-%d", os.Getpid())))
		if err := scratch.Prepare(); err != nil {
			return err
		}
		defer func() {
			if err := scratch.Remove(); err != nil {
				log.Warn().Err(err).Msg("failed to remove scratch directory")
			}
		}()

		runnerSvc, err := newRunner(ctx, cfg, scratch)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize")
			return err
		}

		return execute(ctx, runnerSvc, cfg, task)
	}
}

func execute(ctx context.Context, runnerSvc runner.Service, cfg *models.BackupConfig, task string) error {
	switch task {
	case models.TaskBackup:
		result, err := runnerSvc.RunBackup(ctx, *cfg)
		if err != nil {
			return err
		}
		log.Debug().Strs("artifacts", result.Artifacts).Dur("duration", result.Duration).Msg("backup task completed")
	case models.TaskCleanup:
		result, err := runnerSvc.RunCleanup(ctx, *cfg)
		if err != nil {
			return err
		}
		log.Debug().Strs("deleted", result.Deleted).Dur("duration", result.Duration).Msg("cleanup task completed")
	default:
		return fmt.Errorf("unknown task %q", task)
	}

	return nil
}
