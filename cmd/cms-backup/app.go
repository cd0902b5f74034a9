package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/cms-backup/internal/config"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/backup"
	"github.com/fgeck/cms-backup/internal/services/runner"
	"github.com/fgeck/cms-backup/internal/services/storage"
	"github.com/rs/zerolog/log"
)

var errConfigRequired = errors.New("config file is required")

// loadConfig reads and validates the file given with --config.
func loadConfig() (*models.BackupConfig, error) {
	if configFile == "" {
		return nil, errConfigRequired
	}

	cfg, err := config.NewParser().LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	log.Debug().
		Str("config", configFile).
		Str("storage", string(cfg.StorageService)).
		Str("driver", string(cfg.DatabaseDriver)).
		Str("host", cfg.Host.Name).
		Msg("configuration loaded")

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// newRunner wires the storage backend, backup service and runner for cfg.
func newRunner(ctx context.Context, cfg *models.BackupConfig, scratch backup.Scratch) (*runner.Impl, error) {
	store, err := storage.NewFromConfig(ctx, log.Logger, *cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.StorageService, err)
	}

	backupSvc := backup.New(log.Logger, *cfg, store, scratch)
	return runner.New(log.Logger, backupSvc, store.Name()), nil
}
