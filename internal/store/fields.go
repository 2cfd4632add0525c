package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agriref/internal/logging"
	"agriref/internal/services"
)

// InsertParcel registers a parcel in the field table. An existing field_id
// is left untouched and reported as not inserted.
func (s *Store) InsertParcel(ctx context.Context, p ParcelRow) (bool, error) {
	ctx = ensureContext(ctx)
	if p.FieldID == 0 || p.Geom == "" {
		return false, services.Wrap(services.ErrValidation, "store", "insert parcel", "field_id and geom are required", nil)
	}
	set := &columnSet{}
	set.add("field_id", p.FieldID)
	set.add("geom", p.Geom)
	set.add("startdate", p.StartDate)
	set.add("enddate", p.EndDate)
	set.add("crop_type", p.CropType)
	set.add("buff_distm", p.BufferDist)
	set.add("size", p.Size)
	insertSQL, args := set.insert(s.dialect, "field")
	existsSQL := s.dialect.rebind("SELECT COUNT(1) FROM field WHERE field_id = ?")

	inserted := false
	err := retryOnBusy(ctx, func() error {
		inserted = false
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var count int
		if err := tx.QueryRowContext(ctx, existsSQL, p.FieldID).Scan(&count); err != nil {
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
		return false, fmt.Errorf("insert parcel %d: %w", p.FieldID, err)
	}
	if !inserted {
		s.logger.DebugContext(ctx, "parcel already registered", logging.Int64("field_id", p.FieldID))
	}
	return inserted, nil
}

// GetParcel returns the field row for id, or nil when absent.
func (s *Store) GetParcel(ctx context.Context, id int64) (*ParcelRow, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT field_id, geom, startdate, enddate, crop_type, buff_distm, size FROM field WHERE field_id = ?"),
		id,
	)
	var (
		p          ParcelRow
		start, end dateValue
		cropType   sql.NullString
		buffer     sql.NullInt64
		size       sql.NullInt64
	)
	if err := row.Scan(&p.FieldID, &p.Geom, &start, &end, &cropType, &buffer, &size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get parcel: %w", err)
	}
	p.StartDate = string(start)
	p.EndDate = string(end)
	p.CropType = cropType.String
	p.BufferDist = int(buffer.Int64)
	p.Size = size.Int64
	return &p, nil
}

// CountParcels returns the number of registered parcels.
func (s *Store) CountParcels(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM field").Scan(&count); err != nil {
		return 0, fmt.Errorf("count parcels: %w", err)
	}
	return count, nil
}
