package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var expectedColumns = map[string][]string{
	"field": {"field_id", "geom", "startdate", "enddate", "crop_type", "buff_distm", "size"},
	"field_day": {
		"field_id", "date", "size", "bbch_phase", "bbch_sim",
		"bsc_data", "bsc_interp_data", "bsc_valid",
		"coh_data", "coh_interp_data", "coh_valid",
		"s2_data", "s2_interp_data", "s2_valid",
		"temp_min", "temp_max", "temp_mean", "precip",
	},
}

// TableHealth describes one expected table.
type TableHealth struct {
	Name           string
	Exists         bool
	ColumnsPresent []string
	MissingColumns []string
	Rows           int
}

// DatabaseHealth captures diagnostic information about the store.
type DatabaseHealth struct {
	Driver           string
	Location         string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	Tables           []TableHealth
	// IntegrityCheck is the SQLite integrity_check verdict. PostgreSQL
	// reports true once the server answered.
	IntegrityCheck bool
	Error          string
}

// Healthy reports whether every check passed.
func (h DatabaseHealth) Healthy() bool {
	if !h.DatabaseExists || !h.DatabaseReadable || !h.IntegrityCheck || h.Error != "" {
		return false
	}
	for _, table := range h.Tables {
		if !table.Exists || len(table.MissingColumns) > 0 {
			return false
		}
	}
	return true
}

// CheckHealth returns diagnostic information about the database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{
		Driver:   s.dialect.name,
		Location: s.location,
	}

	if s.path != "" {
		info, err := os.Stat(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return health, nil
			}
			return health, fmt.Errorf("stat database: %w", err)
		}
		if info.IsDir() {
			return health, fmt.Errorf("database path %q is a directory", s.path)
		}
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	for _, name := range []string{"field", "field_day"} {
		table, err := s.inspectTable(connCtx, name)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		health.Tables = append(health.Tables, table)
	}

	if s.dialect.numbered {
		health.IntegrityCheck = true
		return health, nil
	}
	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	return health, nil
}

func (s *Store) inspectTable(ctx context.Context, name string) (TableHealth, error) {
	table := TableHealth{Name: name}
	var exists int
	if err := s.db.QueryRowContext(ctx, s.dialect.tableExistsQuery(), name).Scan(&exists); err != nil {
		return table, fmt.Errorf("query table %s: %w", name, err)
	}
	table.Exists = exists > 0
	if !table.Exists {
		table.MissingColumns = append(table.MissingColumns, expectedColumns[name]...)
		return table, nil
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.columnsQuery(), name)
	if err != nil {
		return table, fmt.Errorf("table info %s: %w", name, err)
	}
	defer rows.Close()
	present := make(map[string]struct{})
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return table, fmt.Errorf("scan table info %s: %w", name, err)
		}
		table.ColumnsPresent = append(table.ColumnsPresent, column)
		present[column] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return table, fmt.Errorf("iterate table info %s: %w", name, err)
	}
	for _, column := range expectedColumns[name] {
		if _, ok := present[column]; !ok {
			table.MissingColumns = append(table.MissingColumns, column)
		}
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&table.Rows); err != nil {
		return table, fmt.Errorf("count %s: %w", name, err)
	}
	return table, nil
}
