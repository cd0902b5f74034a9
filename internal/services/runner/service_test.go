package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/backup"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations.
type mockBackupService struct {
	backupFileFunc     func(ctx context.Context, b backup.FileBackup) error
	backupDatabaseFunc func(ctx context.Context, backupFilename string) error
	cleanupFunc        func(ctx context.Context) (*models.CleanupResult, error)
	files              []backup.FileBackup
	databases          []string
	cleanups           int
}

func (m *mockBackupService) BackupFile(ctx context.Context, b backup.FileBackup) error {
	m.files = append(m.files, b)
	if m.backupFileFunc != nil {
		return m.backupFileFunc(ctx, b)
	}
	return nil
}

func (m *mockBackupService) BackupDatabase(ctx context.Context, backupFilename string) error {
	m.databases = append(m.databases, backupFilename)
	if m.backupDatabaseFunc != nil {
		return m.backupDatabaseFunc(ctx, backupFilename)
	}
	return nil
}

func (m *mockBackupService) Cleanup(ctx context.Context) (*models.CleanupResult, error) {
	m.cleanups++
	if m.cleanupFunc != nil {
		return m.cleanupFunc(ctx)
	}
	return &models.CleanupResult{}, nil
}

type mockTelegramService struct {
	sendFunc func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
	sent     []models.TelegramMessage
}

func (m *mockTelegramService) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	m.sent = append(m.sent, msg)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, cfg, msg)
	}
	return &models.TelegramResult{MessageSent: true}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

var testNow = time.Date(2023, 6, 10, 11, 0, 0, 0, time.UTC)

func fixedNow() time.Time {
	return testNow
}

func minimalConfig() models.BackupConfig {
	return models.BackupConfig{
		DatabaseDriver: models.DriverMySQL,
		StorageService: models.StorageAWSS3,
		UploadsDir:     "/srv/cms/public/uploads",
		Host:           models.HostConfig{Name: "blog"},
	}
}

func newRunner(logger zerolog.Logger, b *mockBackupService, tg *mockTelegramService) *Impl {
	return NewWithServices(logger, b, tg, models.StorageAWSS3, fixedNow)
}

func TestRunBackup_BothArtifacts(t *testing.T) {
	var logs bytes.Buffer
	b := &mockBackupService{}
	r := newRunner(zerolog.New(&logs), b, &mockTelegramService{})

	result, err := r.RunBackup(context.Background(), minimalConfig())

	require.NoError(t, err)
	require.Len(t, b.files, 1)
	assert.Equal(t, "/srv/cms/public/uploads", b.files[0].FilePath)
	assert.Equal(t, "uploads-2023610-11000", b.files[0].BackupFilename)
	assert.Equal(t, []string{"database-2023610-11000"}, b.databases)
	assert.Equal(t, []string{"uploads-2023610-11000.tar.gz", "database-2023610-11000.tar.gz"}, result.Artifacts)

	assert.Contains(t, logs.String(), `"message":"backup: uploads-2023610-11000"`)
	assert.Contains(t, logs.String(), `"message":"backup: database-2023610-11000"`)
}

func TestRunBackup_Toggles(t *testing.T) {
	tests := []struct {
		name              string
		disableUploads    bool
		disableDatabase   bool
		expectedFiles     int
		expectedDatabases int
	}{
		{"uploads disabled", true, false, 0, 1},
		{"database disabled", false, true, 1, 0},
		{"both disabled", true, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBackupService{}
			r := newRunner(testLogger(), b, &mockTelegramService{})

			cfg := minimalConfig()
			cfg.DisableUploadsBackup = tt.disableUploads
			cfg.DisableDatabaseBackup = tt.disableDatabase

			_, err := r.RunBackup(context.Background(), cfg)

			require.NoError(t, err)
			assert.Len(t, b.files, tt.expectedFiles)
			assert.Len(t, b.databases, tt.expectedDatabases)
		})
	}
}

func TestRunBackup_UploadsFailureStillBacksUpDatabase(t *testing.T) {
	b := &mockBackupService{
		backupFileFunc: func(ctx context.Context, fb backup.FileBackup) error {
			return errors.New("stat /srv/cms/public/uploads: no such file or directory")
		},
	}
	r := newRunner(testLogger(), b, &mockTelegramService{})

	result, err := r.RunBackup(context.Background(), minimalConfig())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploads backup failed")
	assert.Len(t, b.databases, 1)
	assert.Equal(t, []string{"database-2023610-11000.tar.gz"}, result.Artifacts)
}

func TestRunBackup_BothFail(t *testing.T) {
	b := &mockBackupService{
		backupFileFunc: func(ctx context.Context, fb backup.FileBackup) error {
			return errors.New("archive error")
		},
		backupDatabaseFunc: func(ctx context.Context, name string) error {
			return errors.New("dump error")
		},
	}
	r := newRunner(testLogger(), b, &mockTelegramService{})

	result, err := r.RunBackup(context.Background(), minimalConfig())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive error")
	assert.Contains(t, err.Error(), "dump error")
	assert.Empty(t, result.Artifacts)
}

func TestRunBackup_CustomFilenames(t *testing.T) {
	b := &mockBackupService{}
	r := newRunner(testLogger(), b, &mockTelegramService{})

	cfg := minimalConfig()
	cfg.CustomUploadsBackupFilename = `{{.Host}}-media-{{.Time.Format "20060102"}}`
	cfg.CustomDatabaseBackupFilename = `{{.Host}}-db-{{.Time.Format "20060102"}}`

	result, err := r.RunBackup(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"blog-media-20230610.tar.gz", "blog-db-20230610.tar.gz"}, result.Artifacts)
}

func TestRunBackup_InvalidTemplateFailsOnlyThatArtifact(t *testing.T) {
	b := &mockBackupService{}
	r := newRunner(testLogger(), b, &mockTelegramService{})

	cfg := minimalConfig()
	cfg.CustomUploadsBackupFilename = "{{.Nope}}"

	result, err := r.RunBackup(context.Background(), cfg)

	require.Error(t, err)
	assert.Empty(t, b.files)
	assert.Equal(t, []string{"database-2023610-11000.tar.gz"}, result.Artifacts)
}

func TestRunBackup_TelegramSuccess(t *testing.T) {
	tg := &mockTelegramService{}
	r := newRunner(testLogger(), &mockBackupService{}, tg)

	cfg := minimalConfig()
	cfg.Telegram = &models.TelegramConfig{BotToken: "token", ChatID: "chat"}

	_, err := r.RunBackup(context.Background(), cfg)

	require.NoError(t, err)
	require.Len(t, tg.sent, 1)
	msg := tg.sent[0]
	assert.True(t, msg.Success)
	assert.Equal(t, models.TaskBackup, msg.Task)
	assert.Equal(t, "blog", msg.Host)
	assert.Equal(t, "aws-s3", msg.Storage)
	assert.Len(t, msg.Artifacts, 2)
}

func TestRunBackup_TelegramFailure(t *testing.T) {
	tg := &mockTelegramService{}
	b := &mockBackupService{
		backupDatabaseFunc: func(ctx context.Context, name string) error {
			return errors.New("mysql dump failed: access denied")
		},
	}
	r := newRunner(testLogger(), b, tg)

	cfg := minimalConfig()
	cfg.Telegram = &models.TelegramConfig{BotToken: "token", ChatID: "chat"}

	_, err := r.RunBackup(context.Background(), cfg)

	require.Error(t, err)
	require.Len(t, tg.sent, 1)
	msg := tg.sent[0]
	assert.False(t, msg.Success)
	assert.Equal(t, "database", msg.FailedStep)
	assert.Contains(t, msg.ErrorMessage, "access denied")
	assert.Equal(t, []string{"uploads-2023610-11000.tar.gz"}, msg.Artifacts)
}

func TestRunBackup_TelegramErrorDoesNotFailTask(t *testing.T) {
	tg := &mockTelegramService{
		sendFunc: func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			return &models.TelegramResult{Error: errors.New("status 401")}, nil
		},
	}
	r := newRunner(testLogger(), &mockBackupService{}, tg)

	cfg := minimalConfig()
	cfg.Telegram = &models.TelegramConfig{BotToken: "token", ChatID: "chat"}

	_, err := r.RunBackup(context.Background(), cfg)

	assert.NoError(t, err)
}

func TestRunBackup_NoTelegramConfigured(t *testing.T) {
	tg := &mockTelegramService{}
	r := newRunner(testLogger(), &mockBackupService{}, tg)

	_, err := r.RunBackup(context.Background(), minimalConfig())

	require.NoError(t, err)
	assert.Empty(t, tg.sent)
}

func TestRunCleanup_Disabled(t *testing.T) {
	b := &mockBackupService{}
	r := newRunner(testLogger(), b, &mockTelegramService{})

	result, err := r.RunCleanup(context.Background(), minimalConfig())

	require.NoError(t, err)
	assert.Equal(t, 0, b.cleanups)
	assert.Empty(t, result.Deleted)
}

func TestRunCleanup_Success(t *testing.T) {
	var logs bytes.Buffer
	b := &mockBackupService{
		cleanupFunc: func(ctx context.Context) (*models.CleanupResult, error) {
			return &models.CleanupResult{Listed: 3, Deleted: []string{"a", "b"}}, nil
		},
	}
	tg := &mockTelegramService{}
	r := newRunner(zerolog.New(&logs), b, tg)

	cfg := minimalConfig()
	cfg.AllowCleanup = true
	cfg.TimeToKeepBackups = time.Hour
	cfg.Telegram = &models.TelegramConfig{BotToken: "token", ChatID: "chat"}

	result, err := r.RunCleanup(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, 1, b.cleanups)
	assert.Equal(t, []string{"a", "b"}, result.Deleted)
	assert.Contains(t, logs.String(), `"message":"cleanup"`)

	require.Len(t, tg.sent, 1)
	assert.Equal(t, models.TaskCleanup, tg.sent[0].Task)
	assert.Equal(t, 3, tg.sent[0].BackupsListed)
	assert.Equal(t, 2, tg.sent[0].BackupsDeleted)
}

func TestRunCleanup_NothingDeletedSkipsNotification(t *testing.T) {
	tg := &mockTelegramService{}
	r := newRunner(testLogger(), &mockBackupService{}, tg)

	cfg := minimalConfig()
	cfg.AllowCleanup = true
	cfg.Telegram = &models.TelegramConfig{BotToken: "token", ChatID: "chat"}

	_, err := r.RunCleanup(context.Background(), cfg)

	require.NoError(t, err)
	assert.Empty(t, tg.sent)
}

func TestRunCleanup_Failure(t *testing.T) {
	b := &mockBackupService{
		cleanupFunc: func(ctx context.Context) (*models.CleanupResult, error) {
			return nil, errors.New("forbidden")
		},
	}
	tg := &mockTelegramService{}
	r := newRunner(testLogger(), b, tg)

	cfg := minimalConfig()
	cfg.AllowCleanup = true
	cfg.Telegram = &models.TelegramConfig{BotToken: "token", ChatID: "chat"}

	result, err := r.RunCleanup(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, strings.HasPrefix(err.Error(), "cleanup failed"))
	require.Len(t, tg.sent, 1)
	assert.False(t, tg.sent[0].Success)
	assert.Equal(t, "cleanup", tg.sent[0].FailedStep)
}
