package main

import (
	"context"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/backup"
	"github.com/fgeck/cms-backup/internal/services/scheduler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run backup and cleanup on their cron schedules",
	Long: `Run as a daemon. The backup task runs on cronSchedule, the cleanup task
on cleanupCronSchedule (or cronSchedule when unset). Cleanup only deletes
anything when allowCleanup is set.

Expressions use five fields with an optional leading seconds field, or
descriptors such as @daily and @every 6h.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Minute,
		"how long to wait for running tasks on shutdown")
}

func serve(cmd *cobra.Command, args []string) error {
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

	scratch := backup.NewScratch(cfg.ScratchDir)
	if err := scratch.Prepare(); err != nil {
		log.Error().Err(err).Msg("failed to prepare scratch directory")
		return err
	}
	defer func() {
		if err := scratch.Remove(); err != nil {
			log.Warn().Err(err).Msg("failed to remove scratch directory")
		}
		log.Info().Msg("destroy")
	}()

	runnerSvc, err := newRunner(ctx, cfg, scratch)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		return err
	}

	sched := scheduler.New(ctx, log.Logger)

	if err := sched.Register(models.TaskBackup, cfg.CronSchedule, func(ctx context.Context) error {
		_, err := runnerSvc.RunBackup(ctx, *cfg)
		return err
	}); err != nil {
		return err
	}

	if err := sched.Register(models.TaskCleanup, cfg.EffectiveCleanupSchedule(), func(ctx context.Context) error {
		_, err := runnerSvc.RunCleanup(ctx, *cfg)
		return err
	}); err != nil {
		return err
	}

	sched.Start()

	for _, e := range sched.Entries() {
		log.Debug().Str("task", e.Name).Str("schedule", e.Spec).Time("next", e.Next).Msg("task scheduled")
	}
	log.Info().Msg("bootstrap")

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	sched.Stop(stopCtx)

	return nil
}
