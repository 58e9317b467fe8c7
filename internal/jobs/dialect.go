package jobs

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqliteBusyCode       = 5
	sqliteConstraintCode = 19
	pgUniqueViolation    = "23505"
)

// dialect isolates the few statements and error codes that differ between
// SQLite and PostgreSQL. Queries are written with ? placeholders.
type dialect struct {
	name             string
	driverName       string
	tableExistsQuery string
	numbered         bool
}

var (
	sqliteDialect = dialect{
		name:             "sqlite",
		driverName:       "sqlite",
		tableExistsQuery: "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name = ?",
	}
	postgresDialect = dialect{
		name:             "postgres",
		driverName:       "pgx",
		tableExistsQuery: "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?",
		numbered:         true,
	}
)

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) isBusy(err error) bool {
	if err == nil || d.numbered {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (d dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteConstraintCode {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
