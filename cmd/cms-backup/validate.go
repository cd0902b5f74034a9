package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/scheduler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without executing any backup or cleanup.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Host: %s\n", cfg.Host.Name)
	fmt.Printf("  Storage: %s\n", cfg.StorageService)
	fmt.Printf("  Database driver: %s\n", cfg.DatabaseDriver)
	fmt.Printf("  Uploads dir: %s\n", cfg.UploadsDir)
	fmt.Printf("  Scratch dir: %s\n", cfg.ScratchDir)
	fmt.Println()
	fmt.Println("Tasks:")
	fmt.Printf("  Uploads backup: %v\n", !cfg.DisableUploadsBackup)
	fmt.Printf("  Database backup: %v\n", !cfg.DisableDatabaseBackup)
	fmt.Printf("  Cleanup: %v\n", cfg.AllowCleanup)
	if cfg.AllowCleanup {
		fmt.Printf("  Keep backups for: %s\n", cfg.TimeToKeepBackups)
	}
	printSchedule(models.TaskBackup, cfg.CronSchedule)
	printSchedule(models.TaskCleanup, cfg.EffectiveCleanupSchedule())

	fmt.Println()
	fmt.Println("Storage Configuration:")
	switch cfg.StorageService {
	case models.StorageAWSS3:
		fmt.Printf("  Bucket: %s\n", cfg.AWSS3.Bucket)
		if cfg.AWSS3.Region != "" {
			fmt.Printf("  Region: %s\n", cfg.AWSS3.Region)
		}
		if cfg.AWSS3.Endpoint != "" {
			fmt.Printf("  Endpoint: %s\n", cfg.AWSS3.Endpoint)
		}
		fmt.Printf("  Credentials: (configured)\n")
	case models.StorageAzureBlob:
		fmt.Printf("  Account: %s\n", cfg.Azure.AccountName)
		fmt.Printf("  Container: %s\n", cfg.Azure.ContainerName)
		fmt.Printf("  Account Key: (configured)\n")
	case models.StorageGCS:
		fmt.Printf("  Bucket: %s\n", cfg.GCS.BucketName)
		fmt.Printf("  Key file: %s\n", cfg.GCS.KeyFilename)
	}

	if cfg.CustomUploadsBackupFilename != "" || cfg.CustomDatabaseBackupFilename != "" {
		fmt.Println()
		fmt.Println("Filename Templates:")
		if cfg.CustomUploadsBackupFilename != "" {
			fmt.Printf("  Uploads: %s\n", cfg.CustomUploadsBackupFilename)
		}
		if cfg.CustomDatabaseBackupFilename != "" {
			fmt.Printf("  Database: %s\n", cfg.CustomDatabaseBackupFilename)
		}
	}

	fmt.Println()
	fmt.Printf("Telegram: %v\n", cfg.Telegram != nil)
	if cfg.Telegram != nil {
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}

func printSchedule(task, spec string) {
	sched, err := scheduler.Parser.Parse(spec)
	if err != nil {
		fmt.Printf("  %s schedule: %s\n", task, spec)
		return
	}
	fmt.Printf("  %s schedule: %s (next: %s)\n", task, spec, sched.Next(time.Now()).Format(time.RFC3339))
}
