// Package dumper builds and runs database dump commands.
package dumper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/cms-backup/internal/command"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
)

// Dumper writes a full dump of one database to a local file.
type Dumper interface {
	Dump(ctx context.Context, outputPath string) error
	Command(outputPath string) (string, error)
	Driver() models.DatabaseDriver
}

// CommandExecutor allows mocking shell execution in tests.
type CommandExecutor interface {
	Run(ctx context.Context, commandLine string) error
}

// DefaultExecutor runs command lines through sh.
type DefaultExecutor struct{}

// Run executes commandLine with sh -c. Output redirection is part of the
// command line, so stdout is discarded and stderr is returned with the error.
func (e *DefaultExecutor) Run(ctx context.Context, commandLine string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", commandLine) //nolint:gosec // command line is built from trusted config
	cmd.Env = os.Environ()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("dump command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("dump command failed: %w", err)
	}

	return nil
}

// NewFromConfig returns the dumper matching conn.Driver.
func NewFromConfig(logger zerolog.Logger, settings models.DumpSettings, conn models.Connection) (Dumper, error) {
	return NewFromConfigWithExecutor(logger, &DefaultExecutor{}, settings, conn)
}

// NewFromConfigWithExecutor returns the dumper matching conn.Driver using a custom executor (for testing).
func NewFromConfigWithExecutor(
	logger zerolog.Logger,
	executor CommandExecutor,
	settings models.DumpSettings,
	conn models.Connection,
) (Dumper, error) {
	switch conn.Driver {
	case models.DriverMySQL:
		return &Mysql{
			executable: settings.MysqldumpExecutable,
			conn:       conn,
			options:    settings.MysqldumpOptions,
			executor:   executor,
			logger:     logger,
		}, nil
	case models.DriverPostgres:
		return &Postgres{
			executable: settings.PgDumpExecutable,
			conn:       conn,
			options:    settings.PgDumpOptions,
			executor:   executor,
			logger:     logger,
		}, nil
	case models.DriverSQLite:
		return &Sqlite{
			executable: settings.Sqlite3Executable,
			conn:       conn,
			executor:   executor,
			logger:     logger,
		}, nil
	default:
		return nil, models.NewInvalidDriverError("databaseDriver", conn.Driver)
	}
}

// applyExtraOptions adds user supplied options to b, skipping every option
// whose name is protected.
func applyExtraOptions(logger zerolog.Logger, b *command.Builder, options []string, protected map[string]struct{}) error {
	for _, raw := range options {
		opt, err := command.ParseOption(raw)
		if err != nil {
			return err
		}

		if _, ok := protected[opt.Name]; ok {
			logger.Debug().Str("option", opt.Name).Msg("ignoring protected dump option")
			continue
		}

		if opt.Value != "" {
			b.AddOptionWithValue(opt.Name, opt.Value)
		} else {
			b.AddOption(opt.Name)
		}
	}

	return nil
}

func addIfSet(b *command.Builder, name, value string) {
	if value != "" {
		b.AddOptionWithValue(name, value)
	}
}

func protectedSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// run executes a rendered dump command and logs its outcome.
func run(
	ctx context.Context,
	logger zerolog.Logger,
	executor CommandExecutor,
	driver models.DatabaseDriver,
	commandLine string,
	outputPath string,
) error {
	logger.Info().
		Str("driver", string(driver)).
		Str("output", outputPath).
		Msg("starting database dump")

	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := executor.Run(ctx, commandLine); err != nil {
		return fmt.Errorf("%s dump failed: %w", driver, err)
	}

	var size int64
	if info, err := os.Stat(outputPath); err == nil {
		size = info.Size()
	}

	logger.Info().
		Str("driver", string(driver)).
		Str("output", outputPath).
		Int64("size_bytes", size).
		Dur("duration", time.Since(start)).
		Msg("database dump completed")

	return nil
}
