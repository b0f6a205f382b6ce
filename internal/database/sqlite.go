package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var errSQLiteNotReady = errors.New("sqlite database is not initialized")

// SQLiteDB is the single-node driver used for local development and tests.
type SQLiteDB struct {
	DB *sql.DB
}

var _ Database = (*SQLiteDB)(nil)

func NewSQLiteConnection(path string) (*SQLiteDB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}

	// Pragmas go in the DSN so every pooled connection gets them, not just
	// the first one.
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_synchronous=NORMAL"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// In-memory databases are per connection; keep a single one so every
	// query sees the same schema.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteDB{DB: db}, nil
}

func (db *SQLiteDB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *SQLiteDB) Dialect() Dialect { return SQLite }

func (db *SQLiteDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if !db.IsReady() {
		return nil, errSQLiteNotReady
	}
	return sqlQuery(ctx, db.DB, query, args...)
}

func (db *SQLiteDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *SQLiteDB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if !db.IsReady() {
		return nil, errSQLiteNotReady
	}
	return sqlExec(ctx, db.DB, query, args...)
}

func (db *SQLiteDB) Begin(ctx context.Context) (Tx, error) {
	if !db.IsReady() {
		return nil, errSQLiteNotReady
	}
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx: tx}, nil
}

func (db *SQLiteDB) IsReady() bool {
	return db != nil && db.DB != nil
}

// HealthCheck performs a simple connectivity check.
func (db *SQLiteDB) HealthCheck(ctx context.Context) error {
	if !db.IsReady() {
		return errSQLiteNotReady
	}
	return db.DB.PingContext(ctx)
}
