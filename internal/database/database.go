package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
)

// Database abstracts both PostgreSQL and SQLite connections.
type Database interface {
	DBPool
	Close() error
	IsReady() bool
	HealthCheck(ctx context.Context) error
	Dialect() Dialect
}

// DBType enumerates supported database drivers.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
)

// NewDatabaseConnection opens the database selected by cfg.Driver.
func NewDatabaseConnection(cfg *config.DatabaseConfig) (Database, error) {
	return NewDatabaseConnectionWithContext(context.Background(), cfg)
}

// NewDatabaseConnectionWithContext opens the database selected by cfg.Driver
// using ctx for the initial connection attempts.
func NewDatabaseConnectionWithContext(ctx context.Context, cfg *config.DatabaseConfig) (Database, error) {
	switch DetectDBType(cfg.Driver) {
	case DBTypeSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = "whydesigns.db"
		}
		zaplogrus.Infof("Connecting to SQLite database: %s", path)
		return NewSQLiteConnection(path)

	case DBTypePostgres:
		zaplogrus.Infof("Connecting to PostgreSQL database: %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.DBName)
		return NewPostgresConnectionWithContext(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}
}

// DetectDBType detects the database type from the driver string.
func DetectDBType(driver string) DBType {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DBTypeSQLite
	case "postgres", "postgresql", "pgx":
		return DBTypePostgres
	default:
		return DBType(driver)
	}
}
