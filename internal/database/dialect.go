package database

import (
	"fmt"
	"time"
)

// Dialect renders the few SQL fragments that differ between PostgreSQL and
// SQLite. Placeholders are always $n; mattn/go-sqlite3 accepts them as long as
// they first appear in ascending order.
type Dialect interface {
	Name() string
	// Now is the database clock.
	Now() string
	// NowPlusSeconds adds the seconds bound at placeholder to the database clock.
	NowPlusSeconds(placeholder string) string
	// AddMinutes adds a minutes column or placeholder to a timestamp expression.
	AddMinutes(ts, minutes string) string
	// ContainsFold matches column against a %pattern% placeholder ignoring case.
	ContainsFold(column, placeholder string) string
	// Time converts a timestamp argument into the form the driver compares correctly.
	Time(t time.Time) any
}

type dialectProvider interface {
	Dialect() Dialect
}

// DialectOf returns the dialect of db, defaulting to PostgreSQL for pools
// that do not declare one (pgxmock included).
func DialectOf(db DBPool) Dialect {
	if p, ok := db.(dialectProvider); ok {
		return p.Dialect()
	}
	return Postgres
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) Now() string  { return "NOW()" }

func (postgresDialect) NowPlusSeconds(placeholder string) string {
	return fmt.Sprintf("NOW() + make_interval(secs => %s)", placeholder)
}

func (postgresDialect) AddMinutes(ts, minutes string) string {
	return fmt.Sprintf("(%s + make_interval(mins => %s))", ts, minutes)
}

func (postgresDialect) ContainsFold(column, placeholder string) string {
	return fmt.Sprintf("%s ILIKE %s", column, placeholder)
}

func (postgresDialect) Time(t time.Time) any { return t.UTC() }

// sqliteTimeLayout matches what datetime() produces, so bound values and
// values written by the database clock compare as text.
const sqliteTimeLayout = "2006-01-02 15:04:05"

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) Now() string  { return "datetime('now')" }

func (sqliteDialect) NowPlusSeconds(placeholder string) string {
	return fmt.Sprintf("datetime('now', '+' || %s || ' seconds')", placeholder)
}

func (sqliteDialect) AddMinutes(ts, minutes string) string {
	return fmt.Sprintf("datetime(%s, '+' || %s || ' minutes')", ts, minutes)
}

func (sqliteDialect) ContainsFold(column, placeholder string) string {
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", column, placeholder)
}

func (sqliteDialect) Time(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) }
