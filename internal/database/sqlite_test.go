package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMigratedSQLite opens a temp-file SQLite database with the schema applied.
func newMigratedSQLite(t *testing.T) *SQLiteDB {
	t.Helper()

	db, err := NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = Migrate(context.Background(), db)
	require.NoError(t, err)
	return db
}

func TestSQLiteConnection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewSQLiteConnection(dbPath)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.True(t, db.IsReady())
	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, "sqlite", db.Dialect().Name())
}

func TestSQLiteConnection_EmptyPath(t *testing.T) {
	db, err := NewSQLiteConnection("")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestSQLiteDB_NilDatabase(t *testing.T) {
	var db *SQLiteDB
	ctx := context.Background()

	assert.False(t, db.IsReady())
	assert.Error(t, db.HealthCheck(ctx))
	assert.NoError(t, db.Close())

	_, err := db.Query(ctx, "SELECT 1")
	assert.Error(t, err)
	_, err = db.Exec(ctx, "SELECT 1")
	assert.Error(t, err)
	_, err = db.Begin(ctx)
	assert.Error(t, err)
}

func TestSQLiteDB_TransactionRollback(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO roles (name) VALUES ($1)`, "ghost")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE name = $1`, "ghost").Scan(&count))
	assert.Zero(t, count)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = Migrate(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, applied)

	for _, table := range []string{"roles", "users", "otps", "counselors", "bookings"} {
		var name string
		err := db.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestSQLiteDialect_ClockComparesWithBoundTimes(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()

	var past, future int
	err := db.QueryRow(ctx,
		`SELECT $1 < datetime('now'), $2 > datetime('now')`,
		SQLite.Time(time.Now().Add(-time.Hour)),
		SQLite.Time(time.Now().Add(time.Hour)),
	).Scan(&past, &future)
	require.NoError(t, err)
	assert.Equal(t, 1, past)
	assert.Equal(t, 1, future)
}

func TestNewDatabaseConnection(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := NewDatabaseConnection(cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.IsReady())
	assert.Equal(t, SQLite, db.Dialect())
	assert.Equal(t, SQLite, DialectOf(db))
}

func TestNewDatabaseConnection_UnknownDriver(t *testing.T) {
	db, err := NewDatabaseConnection(&config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestDetectDBType(t *testing.T) {
	tests := []struct {
		driver   string
		expected DBType
	}{
		{"sqlite", DBTypeSQLite},
		{"sqlite3", DBTypeSQLite},
		{"postgres", DBTypePostgres},
		{"postgresql", DBTypePostgres},
		{"pgx", DBTypePostgres},
		{"", DBTypeSQLite},
		{" SQLITE ", DBTypeSQLite},
		{"mysql", DBType("mysql")},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectDBType(tt.driver))
		})
	}
}

func TestTranslateError(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO roles (name) VALUES ($1)`, "user")
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO roles (name) VALUES ($1)`, "user")
	require.Error(t, err)
	assert.ErrorIs(t, translateError(err), ErrUniqueViolation)

	var id int64
	err = db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, "missing").Scan(&id)
	assert.True(t, IsNotFound(translateError(err)))
	assert.NoError(t, translateError(nil))
}

func TestInTx(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := InTx(ctx, db, func(tx Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO roles (name) VALUES ($1)`, "discarded"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, InTx(ctx, db, func(tx Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO roles (name) VALUES ($1)`, "kept")
		return err
	}))

	var names []string
	rows, err := db.Query(ctx, `SELECT name FROM roles WHERE name IN ($1, $2)`, "discarded", "kept")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"kept"}, names)
}
