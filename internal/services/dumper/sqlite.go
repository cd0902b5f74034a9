package dumper

import (
	"context"
	"fmt"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
)

// Sqlite dumps a SQLite database file with the sqlite3 shell.
type Sqlite struct {
	executable string
	conn       models.Connection
	executor   CommandExecutor
	logger     zerolog.Logger
}

// Driver returns models.DriverSQLite.
func (d *Sqlite) Driver() models.DatabaseDriver {
	return models.DriverSQLite
}

// Command renders the sqlite3 invocation. The dump runs first; the second
// call only starts once the first has exited and makes the shell exit.
func (d *Sqlite) Command(outputPath string) (string, error) {
	return fmt.Sprintf(`%s %s ".output %s" ".dump" && %s %s ".exit"`,
		d.executable, d.conn.Filename, outputPath,
		d.executable, d.conn.Filename,
	), nil
}

// Dump runs sqlite3.
func (d *Sqlite) Dump(ctx context.Context, outputPath string) error {
	commandLine, err := d.Command(outputPath)
	if err != nil {
		return err
	}
	return run(ctx, d.logger, d.executor, d.Driver(), commandLine, outputPath)
}
