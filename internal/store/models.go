package store

import (
	"database/sql"
	"fmt"
	"time"

	"agriref/internal/sensor"
)

// Observation is one modality's contribution to a day record as produced by
// the reconciler. Paths point at artifact files; empty means absent.
type Observation struct {
	Path       string
	InterpPath string
	Valid      *bool
}

// DayRecord is the write-side view of a field_day row. Nil fields are stored
// as NULL on insert and leave the stored value untouched on update.
type DayRecord struct {
	FieldID      int64
	Date         string
	Size         *int64
	BBCHPhase    *int
	BBCHSim      *bool
	Observations map[sensor.Modality]Observation
	TempMin      *int
	TempMax      *int
	TempMean     *int
	Precip       *int
}

// SetObservation records the observation for modality m.
func (r *DayRecord) SetObservation(m sensor.Modality, obs Observation) {
	if r.Observations == nil {
		r.Observations = make(map[sensor.Modality]Observation, 3)
	}
	r.Observations[m] = obs
}

// Observation returns the observation recorded for m.
func (r *DayRecord) Observation(m sensor.Modality) (Observation, bool) {
	obs, ok := r.Observations[m]
	return obs, ok
}

// Raster holds the stored artifact bytes of one modality.
type Raster struct {
	Data   []byte
	Interp []byte
	Valid  *bool
}

// DayRow is a field_day row as read back from the store.
type DayRow struct {
	FieldID   int64
	Date      string
	Size      *int64
	BBCHPhase *int
	BBCHSim   *bool
	Rasters   map[sensor.Modality]Raster
	TempMin   *int
	TempMax   *int
	TempMean  *int
	Precip    *int
}

// Raster returns the stored bytes for m.
func (r *DayRow) Raster(m sensor.Modality) Raster {
	return r.Rasters[m]
}

// ParcelRow is a row of the field table.
type ParcelRow struct {
	FieldID    int64
	Geom       string
	StartDate  string
	EndDate    string
	CropType   string
	BufferDist int
	Size       int64
}

// dateValue scans DATE and TEXT columns into an ISO date string.
type dateValue string

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = dateValue(v.Format(time.DateOnly))
	case string:
		*d = dateValue(trimDate(v))
	case []byte:
		*d = dateValue(trimDate(string(v)))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
	return nil
}

func trimDate(v string) string {
	if len(v) > len(time.DateOnly) {
		return v[:len(time.DateOnly)]
	}
	return v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}
