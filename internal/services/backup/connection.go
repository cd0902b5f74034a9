package backup

import (
	"fmt"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/fgeck/cms-backup/internal/services/dumper"
)

// ConnectionFromHost derives the dump connection from the host database
// configuration. A connection string takes precedence over discrete fields.
func ConnectionFromHost(cfg models.HostDatabaseConfig) (models.Connection, error) {
	c := cfg.Connection

	switch cfg.Client {
	case models.DriverMySQL:
		if c.ConnectionString != "" {
			return dumper.ParseMysqlConnectionString(c.ConnectionString)
		}
		return discrete(cfg.Client, c), nil
	case models.DriverPostgres:
		if c.ConnectionString != "" {
			return dumper.ParsePostgresConnectionString(c.ConnectionString)
		}
		return discrete(cfg.Client, c), nil
	case models.DriverSQLite:
		if c.Filename == "" {
			return models.Connection{}, fmt.Errorf("sqlite connection requires a filename")
		}
		return models.Connection{Driver: models.DriverSQLite, Filename: c.Filename}, nil
	default:
		return models.Connection{}, models.NewInvalidDriverError("databaseDriver", cfg.Client)
	}
}

func discrete(driver models.DatabaseDriver, c models.HostDatabaseConnection) models.Connection {
	return models.Connection{
		Driver:   driver,
		User:     c.User,
		Password: c.Password,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
	}
}
