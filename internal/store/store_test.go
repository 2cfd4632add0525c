package store_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"agriref/internal/sensor"
	"agriref/internal/services"
	"agriref/internal/store"
	"agriref/internal/testsupport"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.Healthy() {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if health.SchemaVersion != 1 {
		t.Fatalf("unexpected schema version: %d", health.SchemaVersion)
	}
	if len(health.Tables) != 2 || health.Tables[1].Name != "field_day" || len(health.Tables[1].ColumnsPresent) != 18 {
		t.Fatalf("unexpected tables: %+v", health.Tables)
	}
	if st.Driver() != "sqlite" || st.Location() != cfg.Store.Path {
		t.Fatalf("unexpected driver/location: %s %s", st.Driver(), st.Location())
	}

	// Reopening an initialized database verifies the version instead of recreating.
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()
}

func TestInsertDayRecordIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var logs bytes.Buffer
	st.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	ctx := context.Background()

	artifact := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "bsc", "S1_20230102.agr"), []byte("raster-bytes"))
	rec := &store.DayRecord{
		FieldID:   123456789023,
		Date:      "2023-01-02",
		Size:      int64p(9),
		BBCHPhase: intp(12),
		TempMean:  intp(4),
		Precip:    intp(0),
	}
	rec.SetObservation(sensor.Backscatter, store.Observation{Path: artifact, Valid: boolp(true)})

	inserted, err := st.InsertDayRecord(ctx, rec)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to write a row")
	}

	second := *rec
	second.BBCHPhase = intp(30)
	inserted, err = st.InsertDayRecord(ctx, &second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("expected second insert to be skipped")
	}
	if !strings.Contains(logs.String(), "insert skipped") || !strings.Contains(logs.String(), "level=INFO") {
		t.Fatalf("expected info-level skip log, got %q", logs.String())
	}

	count, err := st.CountDayRecords(ctx)
	if err != nil {
		t.Fatalf("CountDayRecords: %v", err)
	}
	if count != 1 {
		t.Fatalf("unexpected row count: got %d want 1", count)
	}

	row, err := st.GetDayRecord(ctx, rec.FieldID, rec.Date)
	if err != nil || row == nil {
		t.Fatalf("GetDayRecord: %v %v", row, err)
	}
	if row.BBCHPhase == nil || *row.BBCHPhase != 12 {
		t.Fatalf("second insert must not overwrite: got %v", row.BBCHPhase)
	}
	bsc := row.Raster(sensor.Backscatter)
	if string(bsc.Data) != "raster-bytes" || bsc.Valid == nil || !*bsc.Valid {
		t.Fatalf("unexpected backscatter column: %+v", bsc)
	}
	if bsc.Interp != nil {
		t.Fatalf("expected null interp column, got %d bytes", len(bsc.Interp))
	}
	if opt := row.Raster(sensor.Optical); opt.Data != nil || opt.Valid != nil {
		t.Fatalf("expected null optical columns, got %+v", opt)
	}
	if row.TempMin != nil || row.Precip == nil || *row.Precip != 0 {
		t.Fatalf("unexpected weather columns: min=%v precip=%v", row.TempMin, row.Precip)
	}
	if row.Date != "2023-01-02" || row.Size == nil || *row.Size != 9 {
		t.Fatalf("unexpected key columns: %+v", row)
	}
}

func TestInsertDayRecordUnreadableArtifactIsValidationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	rec := &store.DayRecord{FieldID: 1, Date: "2023-01-02"}
	rec.SetObservation(sensor.Optical, store.Observation{Path: filepath.Join(t.TempDir(), "missing.agr")})
	_, err := st.InsertDayRecord(context.Background(), rec)
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := st.InsertDayRecord(context.Background(), &store.DayRecord{Date: "2023-01-02"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing key, got %v", err)
	}
}

func TestUpdateDayRecordCoalesces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := &store.DayRecord{FieldID: 42, Date: "2023-05-01", BBCHPhase: intp(10), TempMean: intp(15)}
	if _, err := st.InsertDayRecord(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := st.UpdateDayRecord(ctx, &store.DayRecord{FieldID: 42, Date: "2023-05-01", Precip: intp(3)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("expected update to find the row")
	}
	row, err := st.GetDayRecord(ctx, 42, "2023-05-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.BBCHPhase == nil || *row.BBCHPhase != 10 {
		t.Fatalf("null update must keep bbch: got %v", row.BBCHPhase)
	}
	if row.TempMean == nil || *row.TempMean != 15 {
		t.Fatalf("null update must keep temp_mean: got %v", row.TempMean)
	}
	if row.Precip == nil || *row.Precip != 3 {
		t.Fatalf("expected precip 3, got %v", row.Precip)
	}

	if _, err := st.UpdateDayRecord(ctx, &store.DayRecord{FieldID: 42, Date: "2023-05-01", BBCHPhase: intp(21)}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	row, _ = st.GetDayRecord(ctx, 42, "2023-05-01")
	if *row.BBCHPhase != 21 {
		t.Fatalf("non-null update must overwrite: got %d want 21", *row.BBCHPhase)
	}

	ok, err = st.UpdateDayRecord(ctx, &store.DayRecord{FieldID: 42, Date: "2023-05-02", Precip: intp(1)})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Fatal("expected update of a missing row to report false")
	}
}

func TestListAndDeleteDayRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, date := range []string{"2023-01-03", "2023-01-01", "2023-01-02"} {
		if _, err := st.InsertDayRecord(ctx, &store.DayRecord{FieldID: 7, Date: date}); err != nil {
			t.Fatalf("insert %s: %v", date, err)
		}
	}
	if _, err := st.InsertDayRecord(ctx, &store.DayRecord{FieldID: 8, Date: "2023-01-01"}); err != nil {
		t.Fatalf("insert other field: %v", err)
	}

	rows, err := st.ListDayRecords(ctx, 7)
	if err != nil {
		t.Fatalf("ListDayRecords: %v", err)
	}
	var dates []string
	for _, row := range rows {
		dates = append(dates, row.Date)
	}
	if strings.Join(dates, ",") != "2023-01-01,2023-01-02,2023-01-03" {
		t.Fatalf("unexpected order: %v", dates)
	}

	deleted, err := st.DeleteDayRecords(ctx, 7)
	if err != nil {
		t.Fatalf("DeleteDayRecords: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("unexpected deleted count: got %d want 3", deleted)
	}
	if count, _ := st.CountDayRecords(ctx); count != 1 {
		t.Fatalf("unexpected remaining rows: %d", count)
	}
	if row, err := st.GetDayRecord(ctx, 7, "2023-01-01"); err != nil || row != nil {
		t.Fatalf("expected nil row after delete, got %v %v", row, err)
	}
}

func TestInsertParcelSkipsExisting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	p := store.ParcelRow{
		FieldID:    314159265323,
		Geom:       `{"type":"Polygon","coordinates":[[[0,0],[3,0],[3,3],[0,3],[0,0]]]}`,
		StartDate:  "2023-01-01",
		EndDate:    "2023-12-31",
		CropType:   "WW",
		BufferDist: 10,
		Size:       9,
	}
	inserted, err := st.InsertParcel(ctx, p)
	if err != nil || !inserted {
		t.Fatalf("first InsertParcel: inserted=%v err=%v", inserted, err)
	}
	changed := p
	changed.CropType = "SG"
	inserted, err = st.InsertParcel(ctx, changed)
	if err != nil || inserted {
		t.Fatalf("second InsertParcel: inserted=%v err=%v", inserted, err)
	}

	got, err := st.GetParcel(ctx, p.FieldID)
	if err != nil {
		t.Fatalf("GetParcel: %v", err)
	}
	if got == nil || *got != p {
		t.Fatalf("unexpected parcel: got %+v want %+v", got, p)
	}
	if count, _ := st.CountParcels(ctx); count != 1 {
		t.Fatalf("unexpected parcel count: %d", count)
	}
	if missing, err := st.GetParcel(ctx, 1); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown parcel, got %v %v", missing, err)
	}
}
