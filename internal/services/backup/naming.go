package backup

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
)

// ArchiveSuffix is appended to every uploaded object name.
const ArchiveSuffix = ".tar.gz"

// Filename prefixes of the two artifacts.
const (
	PrefixUploads  = "uploads"
	PrefixDatabase = "database"
)

// BackupFilename returns <prefix>-<YYYYMD>-<HmsSSS> with unpadded fields.
func BackupFilename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%d%d%d-%d%d%d%d",
		prefix,
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond),
	)
}

// ObjectKey returns the storage key a backup filename is uploaded under.
func ObjectKey(backupFilename string) string {
	return backupFilename + ArchiveSuffix
}

// UploadsBackupFilename returns the filename for the uploads artifact at t,
// rendering CustomUploadsBackupFilename when it is set.
func UploadsBackupFilename(cfg models.BackupConfig, t time.Time) (string, error) {
	return filename(cfg.CustomUploadsBackupFilename, PrefixUploads, cfg.Host.Name, t)
}

// DatabaseBackupFilename returns the filename for the database artifact at t,
// rendering CustomDatabaseBackupFilename when it is set.
func DatabaseBackupFilename(cfg models.BackupConfig, t time.Time) (string, error) {
	return filename(cfg.CustomDatabaseBackupFilename, PrefixDatabase, cfg.Host.Name, t)
}

func filename(custom, prefix, host string, t time.Time) (string, error) {
	if custom == "" {
		return BackupFilename(prefix, t), nil
	}
	return RenderFilename(custom, models.FilenameData{Prefix: prefix, Time: t, Host: host})
}

// RenderFilename executes a custom filename template. The result must be a
// non-empty single path segment.
func RenderFilename(text string, data models.FilenameData) (string, error) {
	tmpl, err := template.New("filename").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid filename template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render filename template: %w", err)
	}

	name := strings.TrimSpace(buf.String())
	if name == "" {
		return "", fmt.Errorf("filename template %q rendered an empty name", text)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("filename %q must not contain path separators", name)
	}

	return name, nil
}

// ValidateFilenameTemplate checks that text parses and renders for a sample time.
func ValidateFilenameTemplate(text string) error {
	_, err := RenderFilename(text, models.FilenameData{Prefix: PrefixUploads, Time: time.Now(), Host: "host"})
	return err
}

// DateDiffInSeconds returns the absolute distance between a and b in seconds.
func DateDiffInSeconds(a, b time.Time) float64 {
	return math.Abs(b.Sub(a).Seconds())
}
