package dumper

import (
	"context"

	"github.com/fgeck/cms-backup/internal/command"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
)

var postgresProtected = protectedSet(
	"--username", "-U",
	"--password", "-W",
	"--host", "-h",
	"--port", "-p",
	"--dbname", "-d",
	"--file", "-f",
)

// Postgres dumps PostgreSQL databases with pg_dump.
// The password is passed through PGPASSWORD so it never appears as an argument.
type Postgres struct {
	executable string
	conn       models.Connection
	options    []string
	executor   CommandExecutor
	logger     zerolog.Logger
}

// Driver returns models.DriverPostgres.
func (d *Postgres) Driver() models.DatabaseDriver {
	return models.DriverPostgres
}

// Command renders the pg_dump command line writing to outputPath.
func (d *Postgres) Command(outputPath string) (string, error) {
	b := command.New(d.executable)

	if err := applyExtraOptions(d.logger, b, d.options, postgresProtected); err != nil {
		return "", err
	}

	if d.conn.Password != "" {
		b.SetEnvVar("PGPASSWORD", d.conn.Password)
	}

	addIfSet(b, "--username", d.conn.User)
	addIfSet(b, "--host", d.conn.Host)
	addIfSet(b, "--port", d.conn.Port)
	addIfSet(b, "--dbname", d.conn.Database)
	b.AddOptionWithValue("--file", outputPath)

	return b.Build(), nil
}

// Dump runs pg_dump.
func (d *Postgres) Dump(ctx context.Context, outputPath string) error {
	commandLine, err := d.Command(outputPath)
	if err != nil {
		return err
	}
	return run(ctx, d.logger, d.executor, d.Driver(), commandLine, outputPath)
}
