package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"agriref/internal/sensor"
)

// TrainingFilter selects day records usable as training samples.
type TrainingFilter struct {
	// Modalities whose artifact must be present and valid.
	Modalities []sensor.Modality
	// AllowInvalidOptical accepts optical artifacts that failed the gate.
	AllowInvalidOptical bool
	// ExtendPhenology fills a missing growth stage from the nearest
	// observation of the same field and marks it simulated.
	ExtendPhenology bool
}

// Requires reports whether m is among the required modalities.
func (f TrainingFilter) Requires(m sensor.Modality) bool {
	for _, want := range f.Modalities {
		if want == m {
			return true
		}
	}
	return false
}

func (f TrainingFilter) where() string {
	var clauses []string
	if f.ExtendPhenology {
		clauses = append(clauses, "precip >= 0", "temp_mean >= 0")
	} else {
		clauses = append(clauses,
			"bbch_phase IS NOT NULL",
			"bbch_phase > -1",
			"precip IS NOT NULL",
			"temp_mean IS NOT NULL",
		)
	}
	for _, m := range sensor.All() {
		if !f.Requires(m) {
			continue
		}
		col := string(m)
		if m == sensor.Optical && f.AllowInvalidOptical {
			clauses = append(clauses, col+"_data IS NOT NULL")
			continue
		}
		clauses = append(clauses, col+"_data IS NOT NULL AND "+col+"_valid = TRUE")
	}
	return strings.Join(clauses, " AND ")
}

// TrainingRows returns the rows matching f ordered by field and date.
func (s *Store) TrainingRows(ctx context.Context, f TrainingFilter) ([]DayRow, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + dayColumns + " FROM field_day WHERE " + f.where() + " ORDER BY field_id, date"
	rows, err := s.queryDayRows(ctx, query)
	if err != nil {
		return nil, err
	}
	if !f.ExtendPhenology {
		return rows, nil
	}
	simulated := true
	for i := range rows {
		if rows[i].BBCHPhase != nil {
			continue
		}
		phase, err := s.nearestPhase(ctx, rows[i].FieldID, rows[i].Date)
		if err != nil {
			return nil, err
		}
		if phase == nil {
			continue
		}
		rows[i].BBCHPhase = phase
		rows[i].BBCHSim = &simulated
	}
	return rows, nil
}

// nearestPhase returns the closest earlier growth stage of fieldID before
// date, else the closest later one.
func (s *Store) nearestPhase(ctx context.Context, fieldID int64, date string) (*int, error) {
	queries := []string{
		"SELECT bbch_phase FROM field_day WHERE field_id = ? AND date < ? AND bbch_phase IS NOT NULL ORDER BY date DESC LIMIT 1",
		"SELECT bbch_phase FROM field_day WHERE field_id = ? AND date > ? AND bbch_phase IS NOT NULL ORDER BY date ASC LIMIT 1",
	}
	for _, query := range queries {
		var phase int
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), fieldID, date).Scan(&phase)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("nearest growth stage: %w", err)
		}
		return &phase, nil
	}
	return nil, nil
}
