package store

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"agriref/internal/config"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name     string
	numbered bool
}

var (
	sqliteDialect   = dialect{name: config.DriverSQLite}
	postgresDialect = dialect{name: config.DriverPostgres, numbered: true}
)

func dialectFor(driver string) dialect {
	if driver == config.DriverPostgres {
		return postgresDialect
	}
	return sqliteDialect
}

// placeholder returns the bind marker for the n-th argument (1-based).
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// rebind rewrites ? markers into the dialect's form.
func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) tableExistsQuery() string {
	if d.numbered {
		return "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	}
	return "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (d dialect) columnsQuery() string {
	if d.numbered {
		return "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position"
	}
	return "SELECT name FROM pragma_table_info(?)"
}

func (d dialect) schema() string {
	if d.numbered {
		return schemaPostgres
	}
	return schemaSQLite
}

// isUniqueViolation reports whether err came from the (field_id, date) or
// field_id uniqueness constraints.
func (d dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
