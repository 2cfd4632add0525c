package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"agriref/internal/logging"
	"agriref/internal/sensor"
	"agriref/internal/services"
)

const dayColumns = "field_id, date, size, bbch_phase, bbch_sim, " +
	"bsc_data, bsc_interp_data, bsc_valid, " +
	"coh_data, coh_interp_data, coh_valid, " +
	"s2_data, s2_interp_data, s2_valid, " +
	"temp_min, temp_max, temp_mean, precip"

// InsertDayRecord writes rec unless a row for (field_id, date) exists.
// Only columns with a value are written. Artifact files are read into the
// raster columns; an unreadable artifact is a validation error.
func (s *Store) InsertDayRecord(ctx context.Context, rec *DayRecord) (bool, error) {
	ctx = ensureContext(ctx)
	if err := validateKey(rec); err != nil {
		return false, err
	}
	set := &columnSet{}
	set.add("field_id", rec.FieldID)
	set.add("date", rec.Date)
	if err := appendRecordColumns(set, rec); err != nil {
		return false, err
	}
	insertSQL, args := set.insert(s.dialect, "field_day")
	existsSQL := s.dialect.rebind("SELECT COUNT(1) FROM field_day WHERE field_id = ? AND date = ?")

	inserted := false
	err := retryOnBusy(ctx, func() error {
		inserted = false
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var count int
		if err := tx.QueryRowContext(ctx, existsSQL, rec.FieldID, rec.Date).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return tx.Commit()
		}
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			if s.dialect.isUniqueViolation(err) {
				return nil
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("insert day record %d %s: %w", rec.FieldID, rec.Date, err)
	}
	if !inserted {
		logging.WithContext(ctx, s.logger).InfoContext(ctx, "day record exists; insert skipped",
			logging.Int64("field_id", rec.FieldID),
			logging.String(logging.FieldDate, rec.Date),
		)
	}
	return inserted, nil
}

// UpdateDayRecord merges rec into an existing row. Every column is set to
// COALESCE(new, old), so nil fields keep the stored value. It reports
// whether the row existed.
func (s *Store) UpdateDayRecord(ctx context.Context, rec *DayRecord) (bool, error) {
	ctx = ensureContext(ctx)
	if err := validateKey(rec); err != nil {
		return false, err
	}
	cols := &columnSet{}
	if err := appendRecordColumns(cols, rec); err != nil {
		return false, err
	}
	assignments, args := cols.coalesce(s.dialect, 0)
	n := len(args)
	query := "UPDATE field_day SET " + assignments +
		" WHERE field_id = " + s.dialect.placeholder(n+1) + " AND date = " + s.dialect.placeholder(n+2)
	args = append(args, rec.FieldID, rec.Date)

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update day record %d %s: %w", rec.FieldID, rec.Date, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update day record rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetDayRecord returns the row for (fieldID, date), or nil when absent.
func (s *Store) GetDayRecord(ctx context.Context, fieldID int64, date string) (*DayRow, error) {
	ctx = ensureContext(ctx)
	query := s.dialect.rebind("SELECT " + dayColumns + " FROM field_day WHERE field_id = ? AND date = ?")
	row, err := scanDayRow(s.db.QueryRowContext(ctx, query, fieldID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get day record: %w", err)
	}
	return row, nil
}

// ListDayRecords returns every row of fieldID in ascending date order.
func (s *Store) ListDayRecords(ctx context.Context, fieldID int64) ([]DayRow, error) {
	ctx = ensureContext(ctx)
	query := s.dialect.rebind("SELECT " + dayColumns + " FROM field_day WHERE field_id = ? ORDER BY date")
	return s.queryDayRows(ctx, query, fieldID)
}

// CountDayRecords returns the number of rows in field_day.
func (s *Store) CountDayRecords(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM field_day").Scan(&count); err != nil {
		return 0, fmt.Errorf("count day records: %w", err)
	}
	return count, nil
}

// DeleteDayRecords removes every row of fieldID and returns how many went.
func (s *Store) DeleteDayRecords(ctx context.Context, fieldID int64) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, s.dialect.rebind("DELETE FROM field_day WHERE field_id = ?"), fieldID)
	if err != nil {
		return 0, fmt.Errorf("delete day records: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryDayRows(ctx context.Context, query string, args ...any) ([]DayRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query day records: %w", err)
	}
	defer rows.Close()

	var out []DayRow
	for rows.Next() {
		row, err := scanDayRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day record: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func validateKey(rec *DayRecord) error {
	if rec == nil {
		return services.Wrap(services.ErrValidation, "store", "day record", "record is nil", nil)
	}
	if rec.FieldID == 0 || strings.TrimSpace(rec.Date) == "" {
		return services.Wrap(services.ErrValidation, "store", "day record", "field_id and date are required", nil)
	}
	return nil
}

// appendRecordColumns adds every non-key column of rec in table order.
func appendRecordColumns(cols *columnSet, rec *DayRecord) error {
	addOptional(cols, "size", rec.Size)
	addOptional(cols, "bbch_phase", rec.BBCHPhase)
	addOptional(cols, "bbch_sim", rec.BBCHSim)
	for _, m := range sensor.All() {
		obs := rec.Observations[m]
		data, err := readArtifact(obs.Path)
		if err != nil {
			return err
		}
		interp, err := readArtifact(obs.InterpPath)
		if err != nil {
			return err
		}
		cols.addBytes(string(m)+"_data", data)
		cols.addBytes(string(m)+"_interp_data", interp)
		addOptional(cols, string(m)+"_valid", obs.Valid)
	}
	addOptional(cols, "temp_min", rec.TempMin)
	addOptional(cols, "temp_max", rec.TempMax)
	addOptional(cols, "temp_mean", rec.TempMean)
	addOptional(cols, "precip", rec.Precip)
	return nil
}

func readArtifact(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "read artifact", path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func scanDayRow(scanner interface{ Scan(dest ...any) error }) (*DayRow, error) {
	var (
		row                        DayRow
		date                       dateValue
		size                       sql.NullInt64
		bbch                       sql.NullInt64
		bbchSim                    sql.NullBool
		bscData, bscInterp         []byte
		bscValid                   sql.NullBool
		cohData, cohInterp         []byte
		cohValid                   sql.NullBool
		s2Data, s2Interp           []byte
		s2Valid                    sql.NullBool
		tempMin, tempMax, tempMean sql.NullInt64
		precip                     sql.NullInt64
	)
	if err := scanner.Scan(
		&row.FieldID, &date, &size, &bbch, &bbchSim,
		&bscData, &bscInterp, &bscValid,
		&cohData, &cohInterp, &cohValid,
		&s2Data, &s2Interp, &s2Valid,
		&tempMin, &tempMax, &tempMean, &precip,
	); err != nil {
		return nil, err
	}
	row.Date = string(date)
	row.Size = int64Ptr(size)
	row.BBCHPhase = intPtr(bbch)
	row.BBCHSim = boolPtr(bbchSim)
	row.Rasters = map[sensor.Modality]Raster{
		sensor.Backscatter: {Data: bscData, Interp: bscInterp, Valid: boolPtr(bscValid)},
		sensor.Coherence:   {Data: cohData, Interp: cohInterp, Valid: boolPtr(cohValid)},
		sensor.Optical:     {Data: s2Data, Interp: s2Interp, Valid: boolPtr(s2Valid)},
	}
	row.TempMin = intPtr(tempMin)
	row.TempMax = intPtr(tempMax)
	row.TempMean = intPtr(tempMean)
	row.Precip = intPtr(precip)
	return &row, nil
}
