package models

// DatabaseDriver identifies a supported database engine.
type DatabaseDriver string

// Supported database drivers.
const (
	DriverMySQL    DatabaseDriver = "mysql"
	DriverPostgres DatabaseDriver = "postgres"
	DriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseDrivers returns every supported driver in a stable order.
func DatabaseDrivers() []DatabaseDriver {
	return []DatabaseDriver{DriverMySQL, DriverPostgres, DriverSQLite}
}

// Valid reports whether d is one of the supported drivers.
func (d DatabaseDriver) Valid() bool {
	for _, known := range DatabaseDrivers() {
		if d == known {
			return true
		}
	}
	return false
}

// Connection describes how a dump tool reaches the database.
// Network engines use the discrete fields, SQLite uses Filename only.
type Connection struct {
	Driver   DatabaseDriver
	User     string
	Password string
	Host     string
	Port     string
	Database string
	Filename string
}

// HostDatabaseConfig is the database configuration of the hosting application.
type HostDatabaseConfig struct {
	Client     DatabaseDriver
	Connection HostDatabaseConnection
}

// HostDatabaseConnection holds either discrete credentials, a connection
// string or a database file.
type HostDatabaseConnection struct {
	User             string
	Password         string
	Host             string
	Port             string
	Database         string
	ConnectionString string
	Filename         string
}
