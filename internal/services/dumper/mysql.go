package dumper

import (
	"context"
	"fmt"

	"github.com/fgeck/cms-backup/internal/command"
	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
)

var mysqlProtected = protectedSet(
	"--user", "-u",
	"--password", "-p",
	"--host", "-h",
	"--port", "-P",
)

// Mysql dumps MySQL and MariaDB databases with mysqldump.
type Mysql struct {
	executable string
	conn       models.Connection
	options    []string
	executor   CommandExecutor
	logger     zerolog.Logger
}

// Driver returns models.DriverMySQL.
func (d *Mysql) Driver() models.DatabaseDriver {
	return models.DriverMySQL
}

// Command renders the mysqldump command line writing to outputPath.
func (d *Mysql) Command(outputPath string) (string, error) {
	b := command.New(d.executable)

	if err := applyExtraOptions(d.logger, b, d.options, mysqlProtected); err != nil {
		return "", err
	}

	addIfSet(b, "--user", d.conn.User)
	addIfSet(b, "--password", d.conn.Password)
	addIfSet(b, "--host", d.conn.Host)
	addIfSet(b, "--port", d.conn.Port)

	b.SetArgs(fmt.Sprintf("%s > %s", d.conn.Database, outputPath))

	return b.Build(), nil
}

// Dump runs mysqldump.
func (d *Mysql) Dump(ctx context.Context, outputPath string) error {
	commandLine, err := d.Command(outputPath)
	if err != nil {
		return err
	}
	return run(ctx, d.logger, d.executor, d.Driver(), commandLine, outputPath)
}
